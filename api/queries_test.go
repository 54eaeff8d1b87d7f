package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"github.com/ambrosus/ambrodeo-backend/api/validator"
)

func queryAPI(t *testing.T, db *testdb) *httptest.Server {
	t.Helper()
	api := &API{
		Logger: slogt.New(t),
		DB:     db,
		Auth:   &testauth{T: t},
		Val:    validator.New(),
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(url + path)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAPI_getUser(t *testing.T) {
	ts := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		path       string
		getUser    func(t *testing.T, address string) (User, bool, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "Found",
			path: "/api/user?address=" + addr1,
			getUser: func(t *testing.T, address string) (User, bool, error) {
				if address != addr1 {
					t.Errorf("Got address %q, want %q", address, addr1)
				}
				return User{Address: addr1, UserName: "alice", Followers: 3, Timestamp: ts}, true, nil
			},
			wantStatus: 200,
			wantBody: `{
				"address": "0x1111111111111111111111111111111111111111",
				"userName": "alice",
				"image": "",
				"messagesReplies": 0,
				"messagesLikes": 0,
				"like": 0,
				"followers": 3,
				"timestamp": "2024-11-05T12:00:00Z"
			}`,
		},
		{
			name:       "MissingIsNull",
			path:       "/api/user?address=" + addr1,
			wantStatus: 200,
			wantBody:   `null`,
		},
		{
			name:       "InvalidAddress",
			path:       "/api/user?address=alice",
			wantStatus: 400,
			wantBody: `{
				"error": "Invalid address"
			}`,
		},
		{
			name: "DBError",
			path: "/api/user?address=" + addr1,
			getUser: func(t *testing.T, address string) (User, bool, error) {
				return User{}, false, errors.New("something went wrong")
			},
			wantStatus: 500,
			wantBody: `{
				"error": "Could not load user"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := queryAPI(t, &testdb{T: t, getUser: tt.getUser})
			resp := get(t, srv.URL, tt.path)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_getToken(t *testing.T) {
	ts := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

	t.Run("Found", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t, getToken: func(t *testing.T, tokenAddress string) (Token, bool, error) {
			if tokenAddress != tokenAddr {
				t.Errorf("Got tokenAddress %q, want %q", tokenAddress, tokenAddr)
			}
			return Token{TokenAddress: tokenAddr, Like: 7, Timestamp: ts}, true, nil
		}})

		resp := get(t, srv.URL, "/api/token?tokenAddress="+tokenAddr)
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{
			"tokenAddress": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"like": 7,
			"timestamp": "2024-11-05T12:00:00Z"
		}`)
	})

	t.Run("MissingIsNull", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t})
		resp := get(t, srv.URL, "/api/token?tokenAddress="+tokenAddr)
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `null`)
	})
}

func TestAPI_getMessages(t *testing.T) {
	ts := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

	t.Run("FilterAndPagePassthrough", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t, listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
			if filter.TokenAddress != tokenAddr {
				t.Errorf("Got tokenAddress %q, want %q", filter.TokenAddress, tokenAddr)
			}
			if filter.Skip != 10 || filter.Limit != 5 {
				t.Errorf("Got page %d/%d, want 10/5", filter.Skip, filter.Limit)
			}
			if !filter.Ascending {
				t.Error("Got descending order, want ascending")
			}
			return 0, nil, nil
		}})

		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr+"&skip=10&limit=5&sort=1")
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{
			"total": 0,
			"data": []
		}`)
	})

	t.Run("DefaultOrderIsDescending", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t, listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
			if filter.Ascending {
				t.Error("Got ascending order, want descending")
			}
			return 0, nil, nil
		}})

		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr)
		checkStatus(t, resp.StatusCode, 200)
	})

	t.Run("LikedAnnotation", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t,
			listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
				return 2, []Message{
					{ID: "m1", Address: addr2, TokenAddress: tokenAddr, Message: "gm", Timestamp: ts},
					{ID: "m2", Address: addr2, TokenAddress: tokenAddr, Message: "wagmi", Timestamp: ts},
				}, nil
			},
			hasMessageLike: func(t *testing.T, address, messageID string) (bool, error) {
				if address != addr1 {
					t.Errorf("Got prober %q, want %q", address, addr1)
				}
				return messageID == "m2", nil
			},
		})

		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr+"&address="+addr1)
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{
			"total": 2,
			"data": [
				{
					"_id": "m1",
					"address": "0x2222222222222222222222222222222222222222",
					"tokenAddress": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
					"message": "gm",
					"id": "",
					"like": 0,
					"timestamp": "2024-11-05T12:00:00Z",
					"liked": false
				},
				{
					"_id": "m2",
					"address": "0x2222222222222222222222222222222222222222",
					"tokenAddress": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
					"message": "wagmi",
					"id": "",
					"like": 0,
					"timestamp": "2024-11-05T12:00:00Z",
					"liked": true
				}
			]
		}`)
	})

	t.Run("FailedProbeDefaultsToFalse", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t,
			listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
				return 1, []Message{{ID: "m1", Timestamp: ts}}, nil
			},
			hasMessageLike: func(t *testing.T, address, messageID string) (bool, error) {
				return false, errors.New("probe failed")
			},
		})

		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr+"&address="+addr1)
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{
			"total": 1,
			"data": [
				{
					"_id": "m1",
					"address": "",
					"tokenAddress": "",
					"message": "",
					"id": "",
					"like": 0,
					"timestamp": "2024-11-05T12:00:00Z",
					"liked": false
				}
			]
		}`)
	})

	t.Run("NoProbesWithoutRequester", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t,
			listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
				return 1, []Message{{ID: "m1", Timestamp: ts}}, nil
			},
			hasMessageLike: func(t *testing.T, address, messageID string) (bool, error) {
				t.Error("Like probe issued without a requesting address")
				return false, nil
			},
		})

		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr)
		checkStatus(t, resp.StatusCode, 200)
	})

	t.Run("MalformedSkip", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t})
		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr+"&skip=abc")
		checkStatus(t, resp.StatusCode, 400)
		checkBody(t, resp, `{
			"error": "Invalid query"
		}`)
	})

	t.Run("NegativeLimit", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t})
		resp := get(t, srv.URL, "/api/messages?tokenAddress="+tokenAddr+"&limit=-1")
		checkStatus(t, resp.StatusCode, 400)
	})

	t.Run("InvalidTokenAddress", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t})
		resp := get(t, srv.URL, "/api/messages?tokenAddress=bogus")
		checkStatus(t, resp.StatusCode, 400)
		checkBody(t, resp, `{
			"error": "Invalid address"
		}`)
	})
}

func TestAPI_getMessagesByUser(t *testing.T) {
	srv := queryAPI(t, &testdb{T: t,
		listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
			if filter.Address != addr1 {
				t.Errorf("Got author filter %q, want %q", filter.Address, addr1)
			}
			if filter.TokenAddress != "" || filter.ParentID != "" {
				t.Errorf("Got extra filters %q/%q, want none", filter.TokenAddress, filter.ParentID)
			}
			return 1, []Message{{ID: "m1", Address: addr1}}, nil
		},
		hasMessageLike: func(t *testing.T, address, messageID string) (bool, error) {
			if address != addr1 {
				t.Errorf("Got prober %q, want the author %q", address, addr1)
			}
			return true, nil
		},
	})

	resp := get(t, srv.URL, "/api/messagesbyuser?address="+addr1)
	checkStatus(t, resp.StatusCode, 200)
}

func TestAPI_getMessageReplies(t *testing.T) {
	t.Run("MissingID", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t})
		resp := get(t, srv.URL, "/api/messagereplies")
		checkStatus(t, resp.StatusCode, 400)
		checkBody(t, resp, `{
			"error": "Invalid query"
		}`)
	})

	t.Run("FiltersByParent", func(t *testing.T) {
		srv := queryAPI(t, &testdb{T: t, listMessages: func(t *testing.T, filter MessageFilter) (int, []Message, error) {
			if filter.ParentID != "m1" {
				t.Errorf("Got parentID %q, want m1", filter.ParentID)
			}
			return 0, nil, nil
		}})

		resp := get(t, srv.URL, "/api/messagereplies?id=m1")
		checkStatus(t, resp.StatusCode, 200)
		checkBody(t, resp, `{
			"total": 0,
			"data": []
		}`)
	})
}

func TestAPI_getUserLikes(t *testing.T) {
	ts := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

	api := &API{
		Logger: slogt.New(t),
		DB: &testdb{T: t, listLikes: func(t *testing.T, address string, page Page) (int, []Like, error) {
			if address != addr1 {
				t.Errorf("Got address %q, want %q", address, addr1)
			}
			return 1, []Like{{Address: addr1, TokenAddress: tokenAddr, Timestamp: ts}}, nil
		}},
		Auth: &testauth{T: t},
		Val:  validator.New(),
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/api/userlikes", nil)
	req.Header.Set("Address", addr1)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"total": 1,
		"data": [
			{
				"address": "0x1111111111111111111111111111111111111111",
				"tokenAddress": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				"timestamp": "2024-11-05T12:00:00Z"
			}
		]
	}`)
}

func TestAPI_getFollowers(t *testing.T) {
	srv := queryAPI(t, &testdb{T: t, listFollowers: func(t *testing.T, userAddress string, page Page) (int, []Follow, error) {
		if userAddress != addr2 {
			t.Errorf("Got userAddress %q, want %q", userAddress, addr2)
		}
		if page.Skip != 2 || page.Limit != 4 {
			t.Errorf("Got page %d/%d, want 2/4", page.Skip, page.Limit)
		}
		return 0, nil, nil
	}})

	resp := get(t, srv.URL, "/api/followers?userAddress="+addr2+"&skip=2&limit=4")
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"total": 0,
		"data": []
	}`)
}

func TestAPI_isFollowed(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		has        bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "Followed",
			path:       "/api/isfollowed?address=" + addr1 + "&userAddress=" + addr2,
			has:        true,
			wantStatus: 200,
			wantBody: `{
				"status": true
			}`,
		},
		{
			name:       "NotFollowed",
			path:       "/api/isfollowed?address=" + addr1 + "&userAddress=" + addr2,
			wantStatus: 200,
			wantBody: `{
				"status": false
			}`,
		},
		{
			name:       "InvalidTarget",
			path:       "/api/isfollowed?address=" + addr1 + "&userAddress=bogus",
			wantStatus: 400,
			wantBody: `{
				"error": "Invalid address"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := queryAPI(t, &testdb{T: t, hasFollow: func(t *testing.T, address, userAddress string) (bool, error) {
				return tt.has, nil
			}})
			resp := get(t, srv.URL, tt.path)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_isLiked(t *testing.T) {
	srv := queryAPI(t, &testdb{T: t, hasUserLike: func(t *testing.T, address, userAddress string) (bool, error) {
		if address != addr1 || userAddress != addr2 {
			t.Errorf("Got (%q, %q), want (%q, %q)", address, userAddress, addr1, addr2)
		}
		return true, nil
	}})

	resp := get(t, srv.URL, "/api/isliked?address="+addr1+"&userAddress="+addr2)
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"status": true
	}`)
}
