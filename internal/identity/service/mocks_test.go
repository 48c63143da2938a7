package service

import (
	"context"
	"time"

	"github.com/nostrid/nip05-registry/internal/identity/domain"
	identityrepo "github.com/nostrid/nip05-registry/internal/identity/repository"
)

type mockRepo struct {
	createFunc               func(ctx context.Context, identity domain.Identity) error
	findByUsernameFunc       func(ctx context.Context, username string) (domain.Identity, error)
	findByPublicKeyFunc      func(ctx context.Context, publicKey string) (domain.Identity, error)
	listFunc                 func(ctx context.Context) ([]domain.Identity, error)
	usernameTakenByOtherFunc func(ctx context.Context, username, publicKey string) (bool, error)
	updateByPublicKeyFunc    func(ctx context.Context, identity domain.Identity) (int64, error)
	deleteByPublicKeyFunc    func(ctx context.Context, publicKey string) (int64, error)
}

func (m *mockRepo) Create(ctx context.Context, identity domain.Identity) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, identity)
	}
	return nil
}

func (m *mockRepo) FindByUsername(ctx context.Context, username string) (domain.Identity, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return domain.Identity{}, identityrepo.ErrNotFound
}

func (m *mockRepo) FindByPublicKey(ctx context.Context, publicKey string) (domain.Identity, error) {
	if m.findByPublicKeyFunc != nil {
		return m.findByPublicKeyFunc(ctx, publicKey)
	}
	return domain.Identity{}, identityrepo.ErrNotFound
}

func (m *mockRepo) List(ctx context.Context) ([]domain.Identity, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepo) UsernameTakenByOther(ctx context.Context, username, publicKey string) (bool, error) {
	if m.usernameTakenByOtherFunc != nil {
		return m.usernameTakenByOtherFunc(ctx, username, publicKey)
	}
	return false, nil
}

func (m *mockRepo) UpdateByPublicKey(ctx context.Context, identity domain.Identity) (int64, error) {
	if m.updateByPublicKeyFunc != nil {
		return m.updateByPublicKeyFunc(ctx, identity)
	}
	return 1, nil
}

func (m *mockRepo) DeleteByPublicKey(ctx context.Context, publicKey string) (int64, error) {
	if m.deleteByPublicKeyFunc != nil {
		return m.deleteByPublicKeyFunc(ctx, publicKey)
	}
	return 0, nil
}

func (m *mockRepo) CountUsers(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockRepo) CountWithRelays(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockRepo) CountWithLightningAddress(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockRepo) RegistrationsByDay(ctx context.Context, since time.Time) ([]identityrepo.DayCount, error) {
	return nil, nil
}
