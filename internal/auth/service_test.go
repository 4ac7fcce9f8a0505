package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/transport"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock repository for testing
type mockUserRepository struct {
	credentials   map[string]*Credentials
	users         map[int64]*user.User
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockUserRepository{
		credentials: map[string]*Credentials{
			"alice@example.com":   {UserID: 1, Email: "alice@example.com", PasswordHash: string(hashedPassword), IsActive: true},
			"retired@example.com": {UserID: 2, Email: "retired@example.com", PasswordHash: string(hashedPassword), IsActive: false},
		},
		users: map[int64]*user.User{
			1: {ID: 1, Email: "alice@example.com", IsActive: true},
			2: {ID: 2, Email: "retired@example.com", IsActive: false},
		},
	}
}

func (m *mockUserRepository) GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error) {
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	return m.credentials[email], nil
}

func (m *mockUserRepository) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	if m.errorToReturn != nil {
		return nil, m.errorToReturn
	}
	return m.users[userID], nil
}

type mockRecorder struct {
	records []audit.Record
}

func (m *mockRecorder) LogAction(ctx context.Context, rec audit.Record) (*audit.Entry, error) {
	m.records = append(m.records, rec)
	return &audit.Entry{}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service       *Service
		mockRepo      *mockUserRepository
		recorder      *mockRecorder
		tokenGen      *JWTTokenGenerator
		accessSecret  = "test-access-secret-test-access-secret"
		refreshSecret = "test-refresh-secret-test-refresh-secret"
		ctx           context.Context
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockUserRepository()
		recorder = &mockRecorder{}
		tokenGen = NewJWTTokenGenerator(accessSecret, refreshSecret, 15*time.Minute, 24*time.Hour)
		service = NewService(mockRepo, tokenGen, recorder, bcrypt.MinCost, quietLogger())
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return distinct access and refresh tokens", func() {
				// Given
				dto := LoginDTO{Email: " Alice@Example.com ", Password: "correct_password"}

				// When
				tokens, err := service.Authenticate(ctx, dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.RefreshToken).ToNot(gomega.Equal(tokens.AccessToken))
				gomega.Expect(tokens.ExpiresIn).To(gomega.Equal(int64(900)))
			})

			ginkgo.It("should record the login", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "alice@example.com", Password: "correct_password"})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(recorder.records).To(gomega.HaveLen(1))
				gomega.Expect(recorder.records[0].Action).To(gomega.Equal(catalog.ActionLogin))
				gomega.Expect(*recorder.records[0].ActorID).To(gomega.Equal(int64(1)))
				gomega.Expect(recorder.records[0].IsSecurityEvent).To(gomega.BeFalse())
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should reject a wrong password as a security event", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "alice@example.com", Password: "nope"})

				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
				gomega.Expect(recorder.records).To(gomega.HaveLen(1))
				gomega.Expect(recorder.records[0].ActorID).To(gomega.BeNil())
				gomega.Expect(recorder.records[0].IsSecurityEvent).To(gomega.BeTrue())
			})

			ginkgo.It("should not reveal whether the email exists", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "ghost@example.com", Password: "correct_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should reject inactive users", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "retired@example.com", Password: "correct_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrUserInactive))
			})

			ginkgo.It("should validate input", func() {
				_, err := service.Authenticate(ctx, LoginDTO{Email: "", Password: ""})
				gomega.Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(gomega.BeTrue())
			})
		})

		ginkgo.Context("when the store is down", func() {
			ginkgo.It("should return a storage error", func() {
				mockRepo.errorToReturn = errors.New("connection refused")

				_, err := service.Authenticate(ctx, LoginDTO{Email: "alice@example.com", Password: "correct_password"})
				gomega.Expect(internal.IsErrorType(err, internal.ErrorTypeStorage)).To(gomega.BeTrue())
			})
		})
	})

	ginkgo.Describe("Tokens", func() {
		ginkgo.It("should refuse a refresh token used as an access token", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "alice@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should refresh into a new pair", func() {
			tokens, err := service.Authenticate(ctx, LoginDTO{Email: "alice@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(refreshed.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("1"))
		})

		ginkgo.It("should report expired tokens", func() {
			tokenGen.now = func() time.Time { return time.Now().Add(-time.Hour) }
			stale, err := tokenGen.GenerateAccessToken("1", "alice@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			tokenGen.now = time.Now

			_, err = tokenGen.ValidateAccessToken(stale)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("another-secret-another-secret-xxxx", refreshSecret, time.Minute, time.Hour)
			forged, err := other.GenerateAccessToken("1", "alice@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = tokenGen.ValidateAccessToken(forged)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var handler *Handler

		ginkgo.BeforeEach(func() {
			handler = NewHandler(transport.NewBaseHandler(quietLogger()), service, recorder)
		})

		ginkgo.It("should put the user on the context", func() {
			token, err := tokenGen.GenerateAccessToken("1", "alice@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			var seen *user.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = internal.UserFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(seen).ToNot(gomega.BeNil())
			gomega.Expect(seen.ID).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should reject a bad token and audit it without an actor", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer garbage")
			w := httptest.NewRecorder()

			handler.AuthMiddleware(http.NotFoundHandler()).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(recorder.records).To(gomega.HaveLen(1))
			gomega.Expect(recorder.records[0].Action).To(gomega.Equal(catalog.ActionDenied))
			gomega.Expect(recorder.records[0].ActorID).To(gomega.BeNil())
			gomega.Expect(recorder.records[0].IsSecurityEvent).To(gomega.BeTrue())
		})

		ginkgo.It("should reject an inactive user's token", func() {
			token, err := tokenGen.GenerateAccessToken("2", "retired@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.AuthMiddleware(http.NotFoundHandler()).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})
})

var _ = ginkgo.Describe("LoginDTO", func() {
	ginkgo.It("rejects values that cannot be an address", func() {
		for _, email := range []string{"alice", "@example.com", "alice@localhost"} {
			err := LoginDTO{Email: email, Password: "x"}.Validate()
			gomega.Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(gomega.BeTrue(), email)
		}
	})

	ginkgo.It("reports a missing email once", func() {
		err := LoginDTO{Password: "x"}.Validate()
		appErr, ok := internal.IsAppError(err)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(appErr.Details.(internal.ValidationErrors).Errors).To(gomega.HaveLen(1))
	})
})
