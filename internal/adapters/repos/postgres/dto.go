package postgres

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/user"
	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
)

type UserDTO struct {
	ID        uuid.UUID
	Email     string
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type VerificationCodeDTO struct {
	ID        uuid.UUID
	Email     string
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func DomainToUserDTO(u *user.User) UserDTO {
	return UserDTO{
		ID:        uuid.UUID(u.ID()),
		Email:     u.Email(),
		Verified:  u.IsVerified(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func UserToDomain(dto UserDTO) *user.User {
	return user.Rehydrate(user.RehydrateArgs{
		ID:        user.ID(dto.ID),
		Email:     dto.Email,
		Verified:  dto.Verified,
		CreatedAt: dto.CreatedAt.UTC(),
		UpdatedAt: dto.UpdatedAt.UTC(),
	})
}

func DomainToVerificationCodeDTO(c *verification.Code) VerificationCodeDTO {
	return VerificationCodeDTO{
		ID:        uuid.UUID(c.ID()),
		Email:     c.Email(),
		Code:      c.Code(),
		ExpiresAt: c.ExpiresAt(),
		Used:      c.IsUsed(),
		CreatedAt: c.CreatedAt(),
	}
}

func VerificationCodeToDomain(dto VerificationCodeDTO) *verification.Code {
	return verification.Rehydrate(verification.RehydrateArgs{
		ID:        verification.ID(dto.ID),
		Email:     dto.Email,
		Code:      dto.Code,
		ExpiresAt: dto.ExpiresAt.UTC(),
		Used:      dto.Used,
		CreatedAt: dto.CreatedAt.UTC(),
	})
}
