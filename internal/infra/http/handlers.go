package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/usecase"

	"github.com/gin-gonic/gin"
)

// agentHeader carries the acting agent's identity. Authentication of that
// identity is the gateway's job; this service only enforces which agent may
// drive which transition.
const agentHeader = "X-Agent-ID"

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createListingRequest struct {
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	ContentBase64 string  `json:"content"`
	FreshnessAt   string  `json:"freshness_at,omitempty"`
	QualityScore  float64 `json:"quality_score"`
	PriceUSDC     float64 `json:"price_usdc"`
}

type listingResponse struct {
	ID           string  `json:"id"`
	SellerID     string  `json:"seller_id"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	ContentSize  uint64  `json:"content_size"`
	FreshnessAt  string  `json:"freshness_at"`
	QualityScore float64 `json:"quality_score"`
	PriceUSDC    float64 `json:"price_usdc"`
	CreatedAt    string  `json:"created_at"`
}

type proofResponse struct {
	ID           string         `json:"id"`
	ProofType    string         `json:"proof_type"`
	Commitment   string         `json:"commitment"`
	PublicInputs map[string]any `json:"public_inputs"`
	CreatedAt    string         `json:"created_at"`
}

type createListingResponse struct {
	Listing     listingResponse `json:"listing"`
	ContentHash string          `json:"content_hash"`
	Proofs      []proofResponse `json:"proofs"`
}

type verifyListingRequest struct {
	Keywords        []string `json:"keywords,omitempty"`
	SchemaHasFields []string `json:"schema_has_fields,omitempty"`
	MinSize         *uint64  `json:"min_size,omitempty"`
	MinQuality      *float64 `json:"min_quality,omitempty"`
}

type bloomCheckResponse struct {
	ListingID       string `json:"listing_id"`
	Word            string `json:"word"`
	ProbablyPresent bool   `json:"probably_present"`
	Note            string `json:"note"`
}

type listProofsResponse struct {
	ListingID string          `json:"listing_id"`
	Proofs    []proofResponse `json:"proofs"`
	Count     int             `json:"count"`
}

type initiateRequest struct {
	ListingID string `json:"listing_id"`
}

type paymentDetails struct {
	Method     string  `json:"method"`
	AmountUSDC float64 `json:"amount_usdc"`
	Recipient  string  `json:"recipient"`
}

type initiateResponse struct {
	TransactionID  string         `json:"transaction_id"`
	Status         string         `json:"status"`
	AmountUSDC     float64        `json:"amount_usdc"`
	ContentHash    string         `json:"content_hash"`
	PaymentDetails paymentDetails `json:"payment_details"`
}

type confirmPaymentRequest struct {
	PaymentSignature string `json:"payment_signature,omitempty"`
	PaymentTxHash    string `json:"payment_tx_hash,omitempty"`
}

type confirmPaymentResponse struct {
	Status        string `json:"status"`
	PaymentTxHash string `json:"payment_tx_hash"`
	PaidAt        string `json:"paid_at"`
}

type deliverRequest struct {
	ContentBase64 string `json:"content"`
}

type deliverResponse struct {
	Status        string `json:"status"`
	DeliveredHash string `json:"delivered_hash"`
	DeliveredAt   string `json:"delivered_at"`
}

type verifyDeliveryResponse struct {
	Status             string `json:"status"`
	VerificationStatus string `json:"verification_status"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

type transactionResponse struct {
	ID                 string  `json:"id"`
	ListingID          string  `json:"listing_id"`
	BuyerID            string  `json:"buyer_id"`
	SellerID           string  `json:"seller_id"`
	AmountUSDC         float64 `json:"amount_usdc"`
	Status             string  `json:"status"`
	PaymentMethod      string  `json:"payment_method"`
	PaymentTxHash      string  `json:"payment_tx_hash,omitempty"`
	ContentHash        string  `json:"content_hash"`
	DeliveredHash      string  `json:"delivered_hash,omitempty"`
	VerificationStatus string  `json:"verification_status"`
	ErrorMessage       string  `json:"error_message,omitempty"`
	InitiatedAt        string  `json:"initiated_at"`
	PaidAt             string  `json:"paid_at,omitempty"`
	DeliveredAt        string  `json:"delivered_at,omitempty"`
	VerifiedAt         string  `json:"verified_at,omitempty"`
	CompletedAt        string  `json:"completed_at,omitempty"`
}

type listTransactionsResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

func (s *Server) handleCreateListing(c *gin.Context) {
	sellerID, ok := s.requireAgent(c)
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_CONTENT_ENCODING", "content must be base64")
		return
	}
	var freshness time.Time
	if req.FreshnessAt != "" {
		freshness, err = time.Parse(time.RFC3339, req.FreshnessAt)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_FRESHNESS", "freshness_at must be RFC 3339")
			return
		}
	}

	resp, err := s.generateUC.Execute(c.Request.Context(), usecase.GenerateListingProofsRequest{
		SellerID:     sellerID,
		Title:        req.Title,
		Content:      content,
		Category:     req.Category,
		FreshnessAt:  freshness,
		QualityScore: req.QualityScore,
		PriceUSDC:    req.PriceUSDC,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createListingResponse{
		Listing:     buildListingResponse(resp.Listing),
		ContentHash: resp.ContentHash,
		Proofs:      buildProofResponses(resp.Proofs),
	})
}

func (s *Server) handleGetListing(c *gin.Context) {
	listing, err := s.listings.Get(c.Request.Context(), c.Param("listing_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildListingResponse(*listing))
}

func (s *Server) handleVerifyListing(c *gin.Context) {
	if !s.enforceRateLimit(c, routeVerify) {
		return
	}
	var req verifyListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.verifyUC.Execute(c.Request.Context(), usecase.VerifyListingRequest{
		ListingID:    c.Param("listing_id"),
		Keywords:     req.Keywords,
		SchemaFields: req.SchemaHasFields,
		MinSize:      req.MinSize,
		MinQuality:   req.MinQuality,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBloomCheck(c *gin.Context) {
	if !s.enforceRateLimit(c, routeBloomCheck) {
		return
	}
	listingID := c.Param("listing_id")
	word := c.Query("word")
	present, err := s.verifyUC.BloomCheck(c.Request.Context(), listingID, word)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bloomCheckResponse{
		ListingID:       listingID,
		Word:            word,
		ProbablyPresent: present,
		Note:            "bloom filters can return false positives but never false negatives",
	})
}

func (s *Server) handleListProofs(c *gin.Context) {
	listingID := c.Param("listing_id")
	proofs, err := s.proofs.ListByListing(c.Request.Context(), listingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listProofsResponse{
		ListingID: listingID,
		Proofs:    buildProofResponses(proofs),
		Count:     len(proofs),
	})
}

func (s *Server) handleInitiate(c *gin.Context) {
	if !s.enforceRateLimit(c, routeInitiate) {
		return
	}
	buyerID, ok := s.requireAgent(c)
	if !ok {
		return
	}
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	tx, err := s.txSvc.Initiate(c.Request.Context(), buyerID, req.ListingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, initiateResponse{
		TransactionID: tx.ID,
		Status:        string(tx.Status),
		AmountUSDC:    tx.AmountUSDC,
		ContentHash:   tx.ContentHash,
		PaymentDetails: paymentDetails{
			Method:     tx.PaymentMethod,
			AmountUSDC: tx.AmountUSDC,
			Recipient:  tx.SellerID,
		},
	})
}

func (s *Server) handleConfirmPayment(c *gin.Context, txID string) {
	buyerID, ok := s.requireAgent(c)
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	tx, err := s.txSvc.ConfirmPayment(c.Request.Context(), buyerID, txID, req.PaymentSignature, req.PaymentTxHash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, confirmPaymentResponse{
		Status:        string(tx.Status),
		PaymentTxHash: tx.PaymentTxHash,
		PaidAt:        formatTimePtr(tx.PaidAt),
	})
}

func (s *Server) handleDeliver(c *gin.Context, txID string) {
	sellerID, ok := s.requireAgent(c)
	if !ok {
		return
	}
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_CONTENT_ENCODING", "content must be base64")
		return
	}
	tx, err := s.txSvc.Deliver(c.Request.Context(), sellerID, txID, content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deliverResponse{
		Status:        string(tx.Status),
		DeliveredHash: tx.DeliveredHash,
		DeliveredAt:   formatTimePtr(tx.DeliveredAt),
	})
}

func (s *Server) handleVerifyDelivery(c *gin.Context, txID string) {
	buyerID, ok := s.requireAgent(c)
	if !ok {
		return
	}
	tx, err := s.txSvc.Verify(c.Request.Context(), buyerID, txID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verifyDeliveryResponse{
		Status:             string(tx.Status),
		VerificationStatus: string(tx.Verification),
		ErrorMessage:       tx.ErrorMessage,
	})
}

func (s *Server) handleGetTransaction(c *gin.Context) {
	tx, err := s.txSvc.Get(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildTransactionResponse(*tx))
}

func (s *Server) handleListTransactions(c *gin.Context) {
	filter := domain.TransactionFilter{
		Status:  domain.TransactionStatus(c.Query("status")),
		AgentID: c.GetHeader(agentHeader),
	}
	if page := c.Query("page"); page != "" {
		parsed, err := strconv.Atoi(page)
		if err != nil || parsed < 1 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_PAGE", "page must be a positive integer")
			return
		}
		filter.Page = parsed
	}
	if size := c.Query("page_size"); size != "" {
		parsed, err := strconv.Atoi(size)
		if err != nil || parsed < 1 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_PAGE_SIZE", "page_size must be a positive integer")
			return
		}
		filter.PageSize = parsed
	}

	txs, total, err := s.txSvc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	out := listTransactionsResponse{
		Transactions: make([]transactionResponse, 0, len(txs)),
		Total:        total,
		Page:         maxInt(filter.Page, 1),
		PageSize:     filter.PageSize,
	}
	if out.PageSize < 1 {
		out.PageSize = 20
	} else if out.PageSize > 100 {
		out.PageSize = 100
	}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, buildTransactionResponse(tx))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		path := c.Request.URL.Path
		if path == "/transactions/initiate" {
			s.handleInitiate(c)
			return
		}
		if rest, ok := strings.CutPrefix(path, "/transactions/"); ok {
			txID, action, found := strings.Cut(rest, "/")
			if found && txID != "" {
				switch action {
				case "confirm-payment":
					s.handleConfirmPayment(c, txID)
					return
				case "deliver":
					s.handleDeliver(c, txID)
					return
				case "verify":
					s.handleVerifyDelivery(c, txID)
					return
				}
			}
		}
	}
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) requireAgent(c *gin.Context) (string, bool) {
	agentID := strings.TrimSpace(c.GetHeader(agentHeader))
	if agentID == "" {
		writeErrorCode(c, http.StatusUnauthorized, "MISSING_AGENT_ID", "X-Agent-ID header is required")
		return "", false
	}
	return agentID, true
}

func buildListingResponse(listing domain.Listing) listingResponse {
	return listingResponse{
		ID:           listing.ID,
		SellerID:     listing.SellerID,
		Title:        listing.Title,
		Category:     listing.Category,
		ContentSize:  listing.ContentSize,
		FreshnessAt:  listing.FreshnessAt.UTC().Format(time.RFC3339),
		QualityScore: listing.QualityScore,
		PriceUSDC:    listing.PriceUSDC,
		CreatedAt:    listing.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildProofResponses(proofs []domain.Proof) []proofResponse {
	out := make([]proofResponse, 0, len(proofs))
	for _, p := range proofs {
		out = append(out, proofResponse{
			ID:           p.ID,
			ProofType:    string(p.Type),
			Commitment:   p.Commitment,
			PublicInputs: p.PublicInputs(),
			CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func buildTransactionResponse(tx domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:                 tx.ID,
		ListingID:          tx.ListingID,
		BuyerID:            tx.BuyerID,
		SellerID:           tx.SellerID,
		AmountUSDC:         tx.AmountUSDC,
		Status:             string(tx.Status),
		PaymentMethod:      tx.PaymentMethod,
		PaymentTxHash:      tx.PaymentTxHash,
		ContentHash:        tx.ContentHash,
		DeliveredHash:      tx.DeliveredHash,
		VerificationStatus: string(tx.Verification),
		ErrorMessage:       tx.ErrorMessage,
		InitiatedAt:        tx.InitiatedAt.UTC().Format(time.RFC3339),
		PaidAt:             formatTimePtr(tx.PaidAt),
		DeliveredAt:        formatTimePtr(tx.DeliveredAt),
		VerifiedAt:         formatTimePtr(tx.VerifiedAt),
		CompletedAt:        formatTimePtr(tx.CompletedAt),
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusUnprocessableEntity, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrInvalidState):
		status, code = http.StatusBadRequest, "INVALID_STATE"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNoProofs):
		status, code = http.StatusNotFound, "NO_PROOFS"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
