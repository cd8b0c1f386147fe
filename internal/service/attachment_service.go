package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusdesk/request-portal-api/internal/models"
	appErrors "github.com/campusdesk/request-portal-api/pkg/errors"
	"github.com/campusdesk/request-portal-api/pkg/storage"
)

// AttachmentService stores request attachments and issues signed download
// tokens. The core request model carries only the opaque relative path this
// service returns.
type AttachmentService struct {
	requests commentRequestReader
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	scope    *AccessScope
	logger   *zap.Logger
	maxSize  int64
}

// NewAttachmentService constructs the service.
func NewAttachmentService(requests commentRequestReader, store *storage.LocalStorage, signer *storage.SignedURLSigner, scope *AccessScope, logger *zap.Logger, maxSize int64) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == nil {
		scope = NewAccessScope()
	}
	return &AttachmentService{requests: requests, store: store, signer: signer, scope: scope, logger: logger, maxSize: maxSize}
}

// Store persists an uploaded file and returns the opaque reference to keep on
// the request.
func (s *AttachmentService) Store(filename string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attachment exceeds %d bytes", s.maxSize))
	}
	ext := filepath.Ext(filename)
	relPath := filepath.Join(time.Now().UTC().Format("2006/01"), uuid.NewString()+ext)
	stored, err := s.store.SaveStream(relPath, r)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "failed to store attachment")
	}
	return stored, nil
}

// Remove deletes a stored file whose request submission never went through.
// Best effort: a leftover file is logged, not surfaced.
func (s *AttachmentService) Remove(ref string) {
	if ref == "" {
		return
	}
	if err := s.store.Delete(ref); err != nil {
		s.logger.Warn("failed to remove orphaned attachment",
			zap.String("ref", ref), zap.Error(err))
	}
}

// SignedURL authorizes the actor against the request and returns a download
// token for its attachment.
func (s *AttachmentService) SignedURL(ctx context.Context, actor models.Actor, requestID string) (string, time.Time, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.scope.Authorize(actor, request, ActionView); err != nil {
		return "", time.Time{}, err
	}
	if request.AttachmentRef == nil || *request.AttachmentRef == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "request has no attachment")
	}
	token, expiresAt, err := s.signer.Generate(request.ID, *request.AttachmentRef)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign attachment url")
	}
	return token, expiresAt, nil
}

// Open validates a download token and returns the backing file.
func (s *AttachmentService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	return file, nil
}
