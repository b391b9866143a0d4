package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"github.com/totegamma/lngateway/internal/domain"
	"github.com/totegamma/lngateway/internal/infra/database/models"
)

const userCacheTTL = 30 // seconds

type UserRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewUserRepository(db *gorm.DB, mc *memcache.Client) *UserRepository {
	return &UserRepository{db: db, mc: mc}
}

func (r *UserRepository) Get(ctx context.Context, id int) (domain.User, error) {
	var user models.AppUser
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUnknownUser
		}
		return domain.User{}, err
	}
	return userToDomain(user), nil
}

// GetByName resolves a lightning address owner. Lookups are cached briefly;
// the cached LastTweak may be stale, which is fine because allocation never
// reads it (see ClaimNextTweak).
func (r *UserRepository) GetByName(ctx context.Context, name string) (domain.User, error) {
	cacheKey := "user:name:" + name

	if r.mc != nil {
		if item, err := r.mc.Get(cacheKey); err == nil {
			var cached models.AppUser
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return userToDomain(cached), nil
			}
		}
	}

	var user models.AppUser
	err := r.db.WithContext(ctx).First(&user, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUnknownUser
		}
		return domain.User{}, err
	}

	if r.mc != nil {
		if raw, err := json.Marshal(user); err == nil {
			r.mc.Set(&memcache.Item{Key: cacheKey, Value: raw, Expiration: userCacheTTL})
		}
	}

	return userToDomain(user), nil
}

// ClaimNextTweak atomically advances the user's tweak counter and returns
// the claimed index. The database serializes concurrent claims, so an index
// handed out here is never handed out again, even if the caller later fails.
func (r *UserRepository) ClaimNextTweak(ctx context.Context, userID int) (int64, error) {
	var tweak int64
	result := r.db.WithContext(ctx).Raw(
		"UPDATE app_users SET last_tweak = last_tweak + 1 WHERE id = ? RETURNING last_tweak",
		userID,
	).Scan(&tweak)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, domain.ErrUnknownUser
	}
	return tweak, nil
}

func userToDomain(user models.AppUser) domain.User {
	return domain.User{
		ID:            user.ID,
		Name:          user.Name,
		Pubkey:        user.Pubkey,
		Relays:        user.Relays,
		FederationIDs: user.FederationIDs,
		LastTweak:     user.LastTweak,
	}
}
