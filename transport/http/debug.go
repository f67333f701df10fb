package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NonceSigner signs nonces on behalf of a demo identity.
type NonceSigner interface {
	SignNonce(nonce string) (string, error)
}

// DebugHandlers serve development helpers. They are only routed in demo mode.
type DebugHandlers struct {
	signer NonceSigner
}

// Sign returns the demo identity's signature over the nonce query parameter
func (h *DebugHandlers) Sign(c *gin.Context) {
	nonce := c.Query("nonce")
	if nonce == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce is required"})
		return
	}

	sig, err := h.signer.SignNonce(nonce)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"signature": sig})
}
