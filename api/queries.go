package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// parsePage reads the skip/limit query parameters. Zero means unbounded.
func parsePage(r *http.Request) (Page, bool) {
	var page Page
	for name, dst := range map[string]*int{"skip": &page.Skip, "limit": &page.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Page{}, false
		}
		*dst = n
	}
	return page, true
}

func queryAddress(r *http.Request, name string) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	address := queryAddress(r, "address")
	if !common.IsHexAddress(address) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}

	user, ok, err := a.DB.GetUser(r.Context(), address)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load user")
		return
	}
	if !ok {
		a.respond(w, http.StatusOK, nil)
		return
	}
	a.respond(w, http.StatusOK, user)
}

func (a *API) getToken(w http.ResponseWriter, r *http.Request) {
	tokenAddress := queryAddress(r, "tokenAddress")
	if !common.IsHexAddress(tokenAddress) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}

	token, ok, err := a.DB.GetToken(r.Context(), tokenAddress)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not load token")
		return
	}
	if !ok {
		a.respond(w, http.StatusOK, nil)
		return
	}
	a.respond(w, http.StatusOK, token)
}

// listMessages runs one message listing and annotates each row with the
// liked flag for the requesting address. The probes are independent point
// lookups; a failed probe leaves the row at liked=false.
func (a *API) listMessages(w http.ResponseWriter, r *http.Request, filter MessageFilter, requester string) {
	type response struct {
		Total int       `json:"total"`
		Data  []Message `json:"data"`
	}

	total, msgs, err := a.DB.ListMessages(r.Context(), filter)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list messages")
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}

	if requester != "" {
		for i := range msgs {
			liked, err := a.DB.HasMessageLike(r.Context(), requester, msgs[i].ID)
			if err != nil {
				a.Logger.Warn("Could not probe message like", "id", msgs[i].ID, "error", err.Error())
				continue
			}
			msgs[i].Liked = liked
		}
	}

	a.respond(w, http.StatusOK, response{Total: total, Data: msgs})
}

func (a *API) getMessages(w http.ResponseWriter, r *http.Request) {
	tokenAddress := queryAddress(r, "tokenAddress")
	if !common.IsHexAddress(tokenAddress) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	a.listMessages(w, r, MessageFilter{
		TokenAddress: tokenAddress,
		Ascending:    r.URL.Query().Get("sort") == "1",
		Page:         page,
	}, queryAddress(r, "address"))
}

func (a *API) getMessagesByUser(w http.ResponseWriter, r *http.Request) {
	address := queryAddress(r, "address")
	if !common.IsHexAddress(address) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	a.listMessages(w, r, MessageFilter{
		Address:   address,
		Ascending: r.URL.Query().Get("sort") == "1",
		Page:      page,
	}, address)
}

func (a *API) getMessageReplies(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	a.listMessages(w, r, MessageFilter{
		ParentID:  id,
		Ascending: r.URL.Query().Get("sort") == "1",
		Page:      page,
	}, queryAddress(r, "address"))
}

func (a *API) getUserLikes(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Total int    `json:"total"`
		Data  []Like `json:"data"`
	}

	address := requestAddress(r)
	if !common.IsHexAddress(address) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	total, likes, err := a.DB.ListLikes(r.Context(), address, page)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list likes")
		return
	}
	if likes == nil {
		likes = []Like{}
	}
	a.respond(w, http.StatusOK, response{Total: total, Data: likes})
}

func (a *API) getMessageLikes(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Total int           `json:"total"`
		Data  []MessageLike `json:"data"`
	}

	address := requestAddress(r)
	if !common.IsHexAddress(address) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	total, likes, err := a.DB.ListMessageLikes(r.Context(), address, page)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list likes")
		return
	}
	if likes == nil {
		likes = []MessageLike{}
	}
	a.respond(w, http.StatusOK, response{Total: total, Data: likes})
}

func (a *API) getFollowers(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Total int      `json:"total"`
		Data  []Follow `json:"data"`
	}

	userAddress := queryAddress(r, "userAddress")
	if !common.IsHexAddress(userAddress) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	total, follows, err := a.DB.ListFollowers(r.Context(), userAddress, page)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list followers")
		return
	}
	if follows == nil {
		follows = []Follow{}
	}
	a.respond(w, http.StatusOK, response{Total: total, Data: follows})
}

func (a *API) getFollowed(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Total int      `json:"total"`
		Data  []Follow `json:"data"`
	}

	address := queryAddress(r, "address")
	if !common.IsHexAddress(address) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}
	page, ok := parsePage(r)
	if !ok {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid query"})
		return
	}

	total, follows, err := a.DB.ListFollowed(r.Context(), address, page)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not list followed")
		return
	}
	if follows == nil {
		follows = []Follow{}
	}
	a.respond(w, http.StatusOK, response{Total: total, Data: follows})
}

func (a *API) isFollowed(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status bool `json:"status"`
	}

	address := queryAddress(r, "address")
	userAddress := queryAddress(r, "userAddress")
	if !common.IsHexAddress(address) || !common.IsHexAddress(userAddress) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}

	status, err := a.DB.HasFollow(r.Context(), address, userAddress)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not check follow status")
		return
	}
	a.respond(w, http.StatusOK, response{Status: status})
}

func (a *API) isLiked(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status bool `json:"status"`
	}

	address := queryAddress(r, "address")
	userAddress := queryAddress(r, "userAddress")
	if !common.IsHexAddress(address) || !common.IsHexAddress(userAddress) {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "Invalid address"})
		return
	}

	status, err := a.DB.HasUserLike(r.Context(), address, userAddress)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not check like status")
		return
	}
	a.respond(w, http.StatusOK, response{Status: status})
}
