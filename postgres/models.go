package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/ambrosus/ambrodeo-backend/api"
)

// A user row holds the profile and its denormalized counters. The counters
// mirror the relation tables and are only moved on actual state transitions.
type user struct {
	bun.BaseModel `bun:"table:users"`

	Address         string    `bun:",pk"`
	UserName        string    `bun:"user_name,notnull,default:''"`
	Image           string    `bun:",notnull,default:''"`
	MessagesReplies int       `bun:",notnull,default:0"`
	MessagesLikes   int       `bun:",notnull,default:0"`
	LikeCount       int       `bun:"like_count,notnull,default:0"`
	Followers       int       `bun:",notnull,default:0"`
	Timestamp       time.Time `bun:",nullzero,default:now()"`
}

type token struct {
	bun.BaseModel `bun:"table:tokens"`

	TokenAddress string    `bun:"token_address,pk"`
	LikeCount    int       `bun:"like_count,notnull,default:0"`
	Timestamp    time.Time `bun:",nullzero,default:now()"`
}

type message struct {
	bun.BaseModel `bun:"table:messages"`

	ID           string    `bun:",pk"`
	Address      string    `bun:",notnull"`
	TokenAddress string    `bun:"token_address,notnull"`
	MessageText  string    `bun:"message_text,notnull"`
	ParentID     string    `bun:"parent_id,notnull,default:''"`
	LikeCount    int       `bun:"like_count,notnull,default:0"`
	Timestamp    time.Time `bun:",nullzero,default:now()"`
}

// Relation rows: existence encodes the binary fact, one row per
// (actor, target) pair via the composite primary key.

type like struct {
	bun.BaseModel `bun:"table:likes"`

	Address      string    `bun:",pk"`
	TokenAddress string    `bun:"token_address,pk"`
	Timestamp    time.Time `bun:",nullzero,default:now()"`
}

type userLike struct {
	bun.BaseModel `bun:"table:user_likes"`

	Address     string    `bun:",pk"`
	UserAddress string    `bun:"user_address,pk"`
	Timestamp   time.Time `bun:",nullzero,default:now()"`
}

type messageLike struct {
	bun.BaseModel `bun:"table:message_likes"`

	Address   string    `bun:",pk"`
	MessageID string    `bun:"message_id,pk"`
	Timestamp time.Time `bun:",nullzero,default:now()"`
}

type follow struct {
	bun.BaseModel `bun:"table:follows"`

	Address     string    `bun:",pk"`
	UserAddress string    `bun:"user_address,pk"`
	Timestamp   time.Time `bun:",nullzero,default:now()"`
}

func (u user) APIUser() api.User {
	return api.User{
		Address:         u.Address,
		UserName:        u.UserName,
		Image:           u.Image,
		MessagesReplies: u.MessagesReplies,
		MessagesLikes:   u.MessagesLikes,
		Like:            u.LikeCount,
		Followers:       u.Followers,
		Timestamp:       u.Timestamp,
	}
}

func (t token) APIToken() api.Token {
	return api.Token{
		TokenAddress: t.TokenAddress,
		Like:         t.LikeCount,
		Timestamp:    t.Timestamp,
	}
}

func (m message) APIMessage() api.Message {
	return api.Message{
		ID:           m.ID,
		Address:      m.Address,
		TokenAddress: m.TokenAddress,
		Message:      m.MessageText,
		ParentID:     m.ParentID,
		Like:         m.LikeCount,
		Timestamp:    m.Timestamp,
	}
}

func (l like) APILike() api.Like {
	return api.Like{
		Address:      l.Address,
		TokenAddress: l.TokenAddress,
		Timestamp:    l.Timestamp,
	}
}

func (l messageLike) APIMessageLike() api.MessageLike {
	return api.MessageLike{
		Address:   l.Address,
		MessageID: l.MessageID,
		Timestamp: l.Timestamp,
	}
}

func (f follow) APIFollow() api.Follow {
	return api.Follow{
		Address:     f.Address,
		UserAddress: f.UserAddress,
		Timestamp:   f.Timestamp,
	}
}
