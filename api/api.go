package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ambrosus/ambrodeo-backend/api/validator"
	"github.com/ambrosus/ambrodeo-backend/auth"
)

// A DB provides the storage layer behind the feed. Relation writes report
// their outcome (insert vs. existing row, delete vs. no-op) so counter
// adjustments can be conditioned on the actual state transition.
type DB interface {
	GetUser(ctx context.Context, address string) (User, bool, error)
	UpsertUser(ctx context.Context, address string, userName, image *string) error
	EnsureUser(ctx context.Context, address string) error
	AdjustUserCounter(ctx context.Context, address string, counter UserCounter, delta int) error

	GetToken(ctx context.Context, tokenAddress string) (Token, bool, error)
	AdjustTokenLike(ctx context.Context, tokenAddress string, delta int) error

	InsertMessage(ctx context.Context, msg Message) (Message, error)
	GetMessage(ctx context.Context, id string) (Message, bool, error)
	ListMessages(ctx context.Context, filter MessageFilter) (int, []Message, error)
	AdjustMessageLike(ctx context.Context, id string, delta int) error

	UpsertLike(ctx context.Context, address, tokenAddress string) (bool, error)
	DeleteLike(ctx context.Context, address, tokenAddress string) (bool, error)
	ListLikes(ctx context.Context, address string, page Page) (int, []Like, error)

	UpsertUserLike(ctx context.Context, address, userAddress string) (bool, error)
	DeleteUserLike(ctx context.Context, address, userAddress string) (bool, error)
	HasUserLike(ctx context.Context, address, userAddress string) (bool, error)

	UpsertMessageLike(ctx context.Context, address, messageID string) (bool, error)
	DeleteMessageLike(ctx context.Context, address, messageID string) (bool, error)
	HasMessageLike(ctx context.Context, address, messageID string) (bool, error)
	ListMessageLikes(ctx context.Context, address string, page Page) (int, []MessageLike, error)

	UpsertFollow(ctx context.Context, address, userAddress string) (bool, error)
	DeleteFollow(ctx context.Context, address, userAddress string) (bool, error)
	HasFollow(ctx context.Context, address, userAddress string) (bool, error)
	ListFollowers(ctx context.Context, userAddress string, page Page) (int, []Follow, error)
	ListFollowed(ctx context.Context, address string, page Page) (int, []Follow, error)
}

// An Auth validates the address/signature header pair of a mutating request
// and returns the normalized address.
type Auth interface {
	Authenticate(ctx context.Context, address, signature string) (string, error)
}

// A SecretIssuer hands out challenge secrets for addresses.
type SecretIssuer interface {
	Issue(ctx context.Context, address string) (string, error)
}

// A TokenResolver ensures a token record exists locally before it may be
// referenced by a message or a like.
type TokenResolver interface {
	EnsureExists(ctx context.Context, tokenAddress string) (bool, error)
}

// API provides the REST endpoints for the application.
type API struct {
	Logger  *slog.Logger
	DB      DB
	Auth    Auth
	Secrets SecretIssuer
	Tokens  TokenResolver
	Val     *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", a.index)
	mux.HandleFunc("GET /api/secret", a.getSecret)

	mux.HandleFunc("POST /api/user", a.addOrUpdateUser)
	mux.HandleFunc("POST /api/message", a.addMessage)
	mux.HandleFunc("POST /api/like", a.toggleTokenLike)
	mux.HandleFunc("POST /api/userlike", a.toggleUserLike)
	mux.HandleFunc("POST /api/messagelike", a.toggleMessageLike)
	mux.HandleFunc("POST /api/follow", a.toggleFollow)

	mux.HandleFunc("GET /api/user", a.getUser)
	mux.HandleFunc("GET /api/token", a.getToken)
	mux.HandleFunc("GET /api/messages", a.getMessages)
	mux.HandleFunc("GET /api/messagesbyuser", a.getMessagesByUser)
	mux.HandleFunc("GET /api/messagereplies", a.getMessageReplies)
	mux.HandleFunc("GET /api/userlikes", a.getUserLikes)
	mux.HandleFunc("GET /api/messagelikes", a.getMessageLikes)
	mux.HandleFunc("GET /api/followers", a.getFollowers)
	mux.HandleFunc("GET /api/followed", a.getFollowed)
	mux.HandleFunc("GET /api/isfollowed", a.isFollowed)
	mux.HandleFunc("GET /api/isliked", a.isLiked)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)

	// Write access requires proof of key possession on every request.
	// Read-only requests stay unauthenticated.
	if r.Method == http.MethodPost && !a.authorize(w, r) {
		return
	}
	a.mux.ServeHTTP(w, r)
}

func (a *API) authorize(w http.ResponseWriter, r *http.Request) bool {
	_, err := a.Auth.Authenticate(r.Context(), r.Header.Get("Address"), r.Header.Get("Signature"))
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, auth.ErrInvalidAddress):
		a.respondError(w, http.StatusBadRequest, err, "Invalid address")
	case errors.Is(err, auth.ErrMissingCredential):
		a.respondError(w, http.StatusBadRequest, err, "Missing address or signature in headers")
	case errors.Is(err, auth.ErrInvalidSignature):
		a.respondError(w, http.StatusUnauthorized, err, "Invalid signature")
	default:
		a.respondError(w, http.StatusInternalServerError, err, "Internal server error")
	}
	return false
}

// requestAddress returns the normalized wallet address the request claims.
func requestAddress(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.Header.Get("Address")))
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) index(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK, struct{}{})
}
