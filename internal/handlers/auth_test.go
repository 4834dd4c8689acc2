package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/auth"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type tokenIssuerStub struct {
	token string
	err   error
}

func (s tokenIssuerStub) Issue(int) (string, error) { return s.token, s.err }

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	return r
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, tokenIssuerStub{token: "signed"})
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "a@example.com", mock.AnythingOfType("string"), "alice").
		Return(models.User{ID: 1, Email: "a@example.com", Nickname: "alice"}, nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"correct horse","nickname":"alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "signed", resp.Token)
	assert.Equal(t, "alice", resp.User.Nickname)
	userRepo.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, tokenIssuerStub{token: "signed"})
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "a@example.com", mock.AnythingOfType("string"), "").
		Return(models.User{}, repositories.ErrEmailTaken).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"correct horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, tokenIssuerStub{token: "signed"})
	router := setupAuthRouter(handler)

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, tokenIssuerStub{token: "signed"})
	router := setupAuthRouter(handler)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	userRepo.On("GetUserByEmail", mock.Anything, "a@example.com").
		Return(models.User{ID: 1, Email: "a@example.com", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"correct horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"signed"`)
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, tokenIssuerStub{token: "signed"})
	router := setupAuthRouter(handler)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	userRepo.On("GetUserByEmail", mock.Anything, "a@example.com").
		Return(models.User{ID: 1, Email: "a@example.com", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"wrong password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, tokenIssuerStub{token: "signed"})
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByEmail", mock.Anything, "nobody@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"email":"nobody@example.com","password":"whatever1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}
