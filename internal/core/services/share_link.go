package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// Ensure shareLinkService implements ShareLinkService
var _ driving.ShareLinkService = (*shareLinkService)(nil)

type shareLinkService struct {
	tenants driven.TenantStore
	signer  driven.ShareTokenSigner
	baseURL string
	logger  *zap.Logger
}

// NewShareLinkService creates a ShareLinkService minting links under baseURL
func NewShareLinkService(tenants driven.TenantStore, signer driven.ShareTokenSigner, baseURL string, logger *zap.Logger) driving.ShareLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &shareLinkService{
		tenants: tenants,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Link returns the stored link. A missing link is minted; a stored token
// that no longer verifies (expired or signed with a rotated secret) is
// replaced.
func (s *shareLinkService) Link(ctx context.Context, ref domain.TenantRef) (string, error) {
	tenant, err := s.tenants.Ensure(ctx, ref)
	if err != nil {
		return "", err
	}

	if tenant.HasShareLink() {
		_, verr := s.signer.Verify(tenant.ShareToken)
		if verr == nil {
			return tenant.ShareLink, nil
		}
		s.logger.Info("replacing unusable share link",
			zap.String("namespace", ref.Namespace.String()),
			zap.Error(verr))
	}

	return s.mint(ctx, ref, tenant)
}

// Regenerate always mints a new link and bumps the token version
func (s *shareLinkService) Regenerate(ctx context.Context, ref domain.TenantRef) (string, error) {
	tenant, err := s.tenants.Ensure(ctx, ref)
	if err != nil {
		return "", err
	}
	return s.mint(ctx, ref, tenant)
}

// mint saves a new link conditioned on the version read. Losing a race
// returns the winner's link.
func (s *shareLinkService) mint(ctx context.Context, ref domain.TenantRef, tenant *domain.Tenant) (string, error) {
	name := ref.Name
	if name == "" {
		name = tenant.DisplayName
	}

	version := tenant.TokenVersion + 1
	token, _, err := s.signer.Issue(ref.ID, name, version)
	if err != nil {
		return "", fmt.Errorf("issue share token: %w", err)
	}
	link := s.chatURL(token)

	err = s.tenants.SaveShareLink(ctx, ref.ID, tenant.TokenVersion, driven.ShareLinkRecord{
		Token:   token,
		URL:     link,
		Version: version,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		current, getErr := s.tenants.Get(ctx, ref.ID)
		if getErr != nil {
			return "", getErr
		}
		if current.HasShareLink() {
			return current.ShareLink, nil
		}
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("save share link: %w", err)
	}

	s.logger.Info("share link issued",
		zap.String("namespace", ref.Namespace.String()),
		zap.Int("version", version))
	return link, nil
}

func (s *shareLinkService) chatURL(token string) string {
	return s.baseURL + "/chat?token=" + url.QueryEscape(token)
}
