package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/internal/users"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/security"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterRepo struct {
	data      map[string]*models.User
	createErr error
}

func (s *stubRegisterRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.data[strings.ToLower(email)]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	return user, nil
}

func newRegisterService(t *testing.T, repo *stubRegisterRepo) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		Tx:   stubTxRunner{},
		Repo: func(*gorm.DB) registerRepository { return repo },
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc
}

func TestRegisterCreatesCustomer(t *testing.T) {
	repo := &stubRegisterRepo{data: map[string]*models.User{}}
	svc := newRegisterService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Email:    " Grower@Example.com ",
		Password: "tomatoes-and-beans",
		Name:     " Pat Grower ",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "grower@example.com" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.Role != enums.UserRoleCustomer || !dto.IsActive || dto.Name != "Pat Grower" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	stored := repo.data["grower@example.com"]
	if stored == nil {
		t.Fatalf("expected user stored")
	}
	ok, err := security.VerifyPassword("tomatoes-and-beans", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := &stubRegisterRepo{data: map[string]*models.User{
		"taken@example.com": {ID: uuid.New(), Email: "taken@example.com"},
	}}
	svc := newRegisterService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "TAKEN@example.com", Password: "long-enough-pw", Name: "X"})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterMapsUniqueViolationToConflict(t *testing.T) {
	repo := &stubRegisterRepo{
		data:      map[string]*models.User{},
		createErr: errors.New(`duplicate key value violates unique constraint "users_email_lower_key"`),
	}
	svc := newRegisterService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "race@example.com", Password: "long-enough-pw", Name: "X"})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newRegisterService(t, &stubRegisterRepo{data: map[string]*models.User{}})
	cases := map[string]RegisterRequest{
		"missing email":     {Password: "long-enough-pw", Name: "X"},
		"missing name":      {Email: "a@example.com", Password: "long-enough-pw"},
		"short password":    {Email: "a@example.com", Password: "short", Name: "X"},
		"password is email": {Email: "averylong@example.com", Password: "AVERYLONG@example.com", Name: "X"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), req); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNewRegisterServiceRequiresTx(t *testing.T) {
	if _, err := NewRegisterService(RegisterServiceParams{PasswordConfig: config.PasswordConfig{}}); err == nil {
		t.Fatalf("expected error without tx runner")
	}
}
