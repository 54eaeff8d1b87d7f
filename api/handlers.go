package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// tokenNotFound is the body returned when the resolver cannot confirm a
// token exists.
type tokenNotFound struct {
	Token string `json:"token"`
}

func (a *API) getSecret(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Secret string `json:"secret"`
	}

	address := requestAddress(r)
	if !common.IsHexAddress(address) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}

	secret, err := a.Secrets.Issue(r.Context(), address)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not issue secret")
		return
	}
	a.respond(w, http.StatusOK, response{Secret: secret})
}

func (a *API) addOrUpdateUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserName *string `json:"userName" validate:"omitempty,max=64"`
		Image    *string `json:"image" validate:"omitempty,max=2048"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Invalid JSON payload")
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	if err := a.DB.UpsertUser(r.Context(), requestAddress(r), body.UserName, body.Image); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not update user")
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) addMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		TokenAddress string `json:"tokenAddress" validate:"required,eth_addr"`
		Message      string `json:"message" validate:"required"`
		ID           string `json:"id"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Invalid JSON payload")
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	address := requestAddress(r)
	tokenAddress := strings.ToLower(body.TokenAddress)

	// A reply must reference an existing parent; the parent's author gets
	// the reply counted against their aggregate.
	var parent Message
	if body.ID != "" {
		var ok bool
		var err error
		parent, ok, err = a.DB.GetMessage(r.Context(), body.ID)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not load message")
			return
		}
		if !ok {
			a.respond(w, http.StatusNotFound, map[string]string{"error": "Message not found"})
			return
		}
	}

	ok, err := a.Tokens.EnsureExists(r.Context(), tokenAddress)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not resolve token")
		return
	}
	if !ok {
		a.respond(w, http.StatusNotFound, tokenNotFound{Token: "Token not found"})
		return
	}

	_, err = a.DB.InsertMessage(r.Context(), Message{
		Address:      address,
		TokenAddress: tokenAddress,
		Message:      body.Message,
		ParentID:     body.ID,
		Timestamp:    time.Now(),
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not insert message")
		return
	}

	if body.ID != "" {
		if err := a.DB.AdjustUserCounter(r.Context(), parent.Address, UserCounterMessagesReplies, 1); err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not update reply count")
			return
		}
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) toggleTokenLike(w http.ResponseWriter, r *http.Request) {
	type request struct {
		TokenAddress string `json:"tokenAddress" validate:"required,eth_addr"`
		Like         bool   `json:"like"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Invalid JSON payload")
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	address := requestAddress(r)
	tokenAddress := strings.ToLower(body.TokenAddress)

	ok, err := a.Tokens.EnsureExists(r.Context(), tokenAddress)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not resolve token")
		return
	}
	if !ok {
		a.respond(w, http.StatusNotFound, tokenNotFound{Token: "Token not found"})
		return
	}

	err = toggleRelation(r.Context(), body.Like, toggleOps{
		upsert: func(ctx context.Context) (bool, error) {
			return a.DB.UpsertLike(ctx, address, tokenAddress)
		},
		remove: func(ctx context.Context) (bool, error) {
			return a.DB.DeleteLike(ctx, address, tokenAddress)
		},
		adjust: func(ctx context.Context, delta int) error {
			return a.DB.AdjustTokenLike(ctx, tokenAddress, delta)
		},
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not toggle like")
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) toggleUserLike(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserAddress string `json:"userAddress" validate:"required,eth_addr"`
		Like        bool   `json:"like"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Invalid JSON payload")
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	address := requestAddress(r)
	userAddress := strings.ToLower(body.UserAddress)

	// The counter lives on the target user's row, which may not exist yet
	// if that address never authenticated.
	if err := a.DB.EnsureUser(r.Context(), userAddress); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not toggle like")
		return
	}

	err := toggleRelation(r.Context(), body.Like, toggleOps{
		upsert: func(ctx context.Context) (bool, error) {
			return a.DB.UpsertUserLike(ctx, address, userAddress)
		},
		remove: func(ctx context.Context) (bool, error) {
			return a.DB.DeleteUserLike(ctx, address, userAddress)
		},
		adjust: func(ctx context.Context, delta int) error {
			return a.DB.AdjustUserCounter(ctx, userAddress, UserCounterLike, delta)
		},
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not toggle like")
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) toggleMessageLike(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ID   string `json:"id" validate:"required"`
		Like bool   `json:"like"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Invalid JSON payload")
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	address := requestAddress(r)

	// The message's current author receives the aggregate adjustment, so
	// the owner is looked up before any write.
	msg, ok, err := a.DB.GetMessage(r.Context(), body.ID)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load message")
		return
	}
	if !ok {
		a.respond(w, http.StatusNotFound, map[string]string{"error": "Message not found"})
		return
	}

	err = toggleRelation(r.Context(), body.Like, toggleOps{
		upsert: func(ctx context.Context) (bool, error) {
			return a.DB.UpsertMessageLike(ctx, address, body.ID)
		},
		remove: func(ctx context.Context) (bool, error) {
			return a.DB.DeleteMessageLike(ctx, address, body.ID)
		},
		adjust: func(ctx context.Context, delta int) error {
			if err := a.DB.AdjustMessageLike(ctx, body.ID, delta); err != nil {
				return err
			}
			return a.DB.AdjustUserCounter(ctx, msg.Address, UserCounterMessagesLikes, delta)
		},
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not toggle like")
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}

func (a *API) toggleFollow(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserAddress string `json:"userAddress" validate:"required,eth_addr"`
		Add         bool   `json:"add"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Invalid JSON payload")
		return
	}
	if !a.validateBody(w, &body) {
		return
	}

	address := requestAddress(r)
	userAddress := strings.ToLower(body.UserAddress)

	if err := a.DB.EnsureUser(r.Context(), userAddress); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not toggle follow")
		return
	}

	err := toggleRelation(r.Context(), body.Add, toggleOps{
		upsert: func(ctx context.Context) (bool, error) {
			return a.DB.UpsertFollow(ctx, address, userAddress)
		},
		remove: func(ctx context.Context) (bool, error) {
			return a.DB.DeleteFollow(ctx, address, userAddress)
		},
		adjust: func(ctx context.Context, delta int) error {
			return a.DB.AdjustUserCounter(ctx, userAddress, UserCounterFollowers, delta)
		},
	})
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not toggle follow")
		return
	}
	a.respond(w, http.StatusOK, struct{}{})
}
