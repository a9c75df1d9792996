package service

import (
	"fmt"
	"net/url"

	"github.com/noah-isme/sma-announce-api/pkg/storage"
)

// SignedAttachmentResolver maps opaque attachment references onto signed
// URLs served by the platform's attachment gateway. The files themselves
// are stored and served elsewhere.
type SignedAttachmentResolver struct {
	signer  *storage.SignedURLSigner
	baseURL string
}

// NewSignedAttachmentResolver constructs the resolver.
func NewSignedAttachmentResolver(signer *storage.SignedURLSigner, baseURL string) *SignedAttachmentResolver {
	if baseURL == "" {
		baseURL = "/api/v1/attachments"
	}
	return &SignedAttachmentResolver{signer: signer, baseURL: baseURL}
}

// Resolve returns a time-limited URL for the reference.
func (r *SignedAttachmentResolver) Resolve(announcementID, ref string) (string, error) {
	token, _, err := r.signer.Generate(announcementID, ref)
	if err != nil {
		return "", fmt.Errorf("sign attachment reference: %w", err)
	}
	return fmt.Sprintf("%s?token=%s", r.baseURL, url.QueryEscape(token)), nil
}
