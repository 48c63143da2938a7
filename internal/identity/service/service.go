package service

import (
	"context"
	"errors"

	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/nostrid/nip05-registry/internal/common/clock"
	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/identity/domain"
	identityrepo "github.com/nostrid/nip05-registry/internal/identity/repository"
	"github.com/nostrid/nip05-registry/internal/observability/metrics"
)

// NIP05Document is the wire shape of the well-known discovery response.
type NIP05Document struct {
	Names  map[string]string   `json:"names"`
	Relays map[string][]string `json:"relays,omitempty"`
}

type UpdateProfileInput struct {
	PublicKey        string
	Username         string
	LightningAddress string
	Relays           []string
}

type Member struct {
	Username         string   `json:"username"`
	PublicKey        string   `json:"publicKey"`
	Npub             string   `json:"npub"`
	Name             string   `json:"name,omitempty"`
	LightningAddress string   `json:"lightningAddress,omitempty"`
	Relays           []string `json:"relays,omitempty"`
}

type Service interface {
	Register(ctx context.Context, username, publicKey string) (NIP05Document, error)
	Resolve(ctx context.Context, name string) (NIP05Document, error)
	ResolveAll(ctx context.Context) (NIP05Document, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (domain.Identity, error)
	Delete(ctx context.Context, publicKey string) error
	ListMembers(ctx context.Context) ([]Member, error)
}

type IdentityService struct {
	repo  identityrepo.Repository
	clock clock.Clock
	log   *logger.Logger
}

func NewIdentityService(repo identityrepo.Repository, clk clock.Clock, log *logger.Logger) *IdentityService {
	return &IdentityService{
		repo:  repo,
		clock: clk,
		log:   log,
	}
}

// Register validates and persists a username to public key mapping.
// Validation order is fixed: missing fields, key format, username
// uniqueness, key uniqueness, then insert.
func (s *IdentityService) Register(ctx context.Context, username, publicKey string) (NIP05Document, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "register_attempt",
	}).Info("register attempt")

	if username == "" || publicKey == "" {
		metrics.RegistrationsTotal.WithLabelValues("missing_field").Inc()
		return NIP05Document{}, ErrMissingField
	}

	if !domain.ValidPublicKey(publicKey) {
		metrics.RegistrationsTotal.WithLabelValues("invalid_key").Inc()
		return NIP05Document{}, ErrInvalidKeyFormat
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "register_username_taken",
		}).Warn("register failed: username taken")
		metrics.RegistrationsTotal.WithLabelValues("username_taken").Inc()
		return NIP05Document{}, ErrUsernameTaken
	} else if !errors.Is(err, identityrepo.ErrNotFound) {
		return NIP05Document{}, s.storageError(ctx, "register_lookup_failed", err)
	}

	if _, err := s.repo.FindByPublicKey(ctx, publicKey); err == nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "register_key_taken",
		}).Warn("register failed: public key already registered")
		metrics.RegistrationsTotal.WithLabelValues("key_taken").Inc()
		return NIP05Document{}, ErrKeyAlreadyRegistered
	} else if !errors.Is(err, identityrepo.ErrNotFound) {
		return NIP05Document{}, s.storageError(ctx, "register_lookup_failed", err)
	}

	identity := domain.Identity{
		Username:  username,
		PublicKey: publicKey,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		// a concurrent insert can still hit the unique constraints
		if errors.Is(err, identityrepo.ErrUsernameExists) {
			metrics.RegistrationsTotal.WithLabelValues("username_taken").Inc()
			return NIP05Document{}, ErrUsernameTaken
		}
		if errors.Is(err, identityrepo.ErrPublicKeyExists) {
			metrics.RegistrationsTotal.WithLabelValues("key_taken").Inc()
			return NIP05Document{}, ErrKeyAlreadyRegistered
		}
		metrics.RegistrationsTotal.WithLabelValues("storage_error").Inc()
		return NIP05Document{}, s.storageError(ctx, "register_create_failed", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "register_success",
	}).Info("register success")
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()

	return NIP05Document{
		Names: map[string]string{username: publicKey},
	}, nil
}

// Resolve answers the well-known query for a single name. The relays map
// is present only when the record carries a non-empty relay list.
func (s *IdentityService) Resolve(ctx context.Context, name string) (NIP05Document, error) {
	identity, err := s.repo.FindByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, identityrepo.ErrNotFound) {
			metrics.ResolutionsTotal.WithLabelValues("single", "not_found").Inc()
			return NIP05Document{}, commonerrors.ErrIdentityNotFound
		}
		metrics.ResolutionsTotal.WithLabelValues("single", "error").Inc()
		return NIP05Document{}, s.storageError(ctx, "resolve_failed", err)
	}

	doc := NIP05Document{
		Names: map[string]string{identity.Username: identity.PublicKey},
	}
	if relays := domain.FilterRelays(identity.Relays); len(relays) > 0 {
		doc.Relays = map[string][]string{identity.PublicKey: relays}
	}

	metrics.ResolutionsTotal.WithLabelValues("single", "found").Inc()
	return doc, nil
}

// ResolveAll returns the full names and relays maps covering every record.
func (s *IdentityService) ResolveAll(ctx context.Context) (NIP05Document, error) {
	identities, err := s.repo.List(ctx)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("all", "error").Inc()
		return NIP05Document{}, s.storageError(ctx, "resolve_all_failed", err)
	}

	doc := NIP05Document{
		Names:  make(map[string]string, len(identities)),
		Relays: make(map[string][]string),
	}
	for _, identity := range identities {
		doc.Names[identity.Username] = identity.PublicKey
		if relays := domain.FilterRelays(identity.Relays); len(relays) > 0 {
			doc.Relays[identity.PublicKey] = relays
		}
	}

	metrics.ResolutionsTotal.WithLabelValues("all", "found").Inc()
	return doc, nil
}

// UpdateProfile mutates the record owned by input.PublicKey. Username
// uniqueness is re-checked against all other records; empty lightning
// address and relay list clear the stored values.
func (s *IdentityService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (domain.Identity, error) {
	if input.Username == "" || input.PublicKey == "" {
		return domain.Identity{}, ErrMissingField
	}

	if !domain.ValidPublicKey(input.PublicKey) {
		return domain.Identity{}, ErrInvalidKeyFormat
	}

	relays := domain.DedupeRelays(input.Relays)
	for _, r := range relays {
		if !domain.ValidRelayURL(r) {
			return domain.Identity{}, ErrInvalidRelayURL
		}
	}

	taken, err := s.repo.UsernameTakenByOther(ctx, input.Username, input.PublicKey)
	if err != nil {
		return domain.Identity{}, s.storageError(ctx, "update_lookup_failed", err)
	}
	if taken {
		return domain.Identity{}, ErrUsernameTaken
	}

	identity := domain.Identity{
		Username:          input.Username,
		PublicKey:         input.PublicKey,
		LightningAddress:  input.LightningAddress,
		Relays:            relays,
		MetadataUpdatedAt: s.clock.Now(),
	}

	rows, err := s.repo.UpdateByPublicKey(ctx, identity)
	if err != nil {
		if errors.Is(err, identityrepo.ErrUsernameExists) {
			return domain.Identity{}, ErrUsernameTaken
		}
		return domain.Identity{}, s.storageError(ctx, "update_failed", err)
	}
	if rows == 0 {
		// the key must exist from session login, so this is a caller error
		s.log.WithFields(ctx, logger.Fields{
			"action": "update_no_rows",
		}).Warn("update failed: no identity for public key")
		return domain.Identity{}, commonerrors.ErrIdentityNotFound
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "update_success",
	}).Info("profile updated")
	metrics.ProfileUpdatesTotal.Inc()

	return identity, nil
}

// Delete removes the record by public key. Deleting a missing record is
// not an error.
func (s *IdentityService) Delete(ctx context.Context, publicKey string) error {
	if !domain.ValidPublicKey(publicKey) {
		return ErrInvalidKeyFormat
	}

	rows, err := s.repo.DeleteByPublicKey(ctx, publicKey)
	if err != nil {
		return s.storageError(ctx, "delete_failed", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"rows":   rows,
		"action": "delete_success",
	}).Info("identity deleted")
	metrics.ProfileDeletesTotal.Inc()
	return nil
}

// ListMembers returns every registered identity with its npub display form.
func (s *IdentityService) ListMembers(ctx context.Context) ([]Member, error) {
	identities, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storageError(ctx, "list_members_failed", err)
	}

	members := make([]Member, 0, len(identities))
	for _, identity := range identities {
		member := Member{
			Username:         identity.Username,
			PublicKey:        identity.PublicKey,
			Name:             identity.Name,
			LightningAddress: identity.LightningAddress,
			Relays:           domain.FilterRelays(identity.Relays),
		}
		if npub, err := nip19.EncodePublicKey(identity.PublicKey); err == nil {
			member.Npub = npub
		}
		members = append(members, member)
	}
	return members, nil
}

func (s *IdentityService) storageError(ctx context.Context, action string, err error) error {
	s.log.WithFields(ctx, logger.Fields{
		"action": action,
	}).Errorf("storage error: %v", err)
	return commonerrors.ErrStorage.WithCause(err)
}
