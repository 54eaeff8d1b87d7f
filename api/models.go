package api

import "time"

// A User is a wallet-address-identified profile together with its
// denormalized engagement counters.
type User struct {
	Address         string    `json:"address"`
	UserName        string    `json:"userName"`
	Image           string    `json:"image"`
	MessagesReplies int       `json:"messagesReplies"`
	MessagesLikes   int       `json:"messagesLikes"`
	Like            int       `json:"like"`
	Followers       int       `json:"followers"`
	Timestamp       time.Time `json:"timestamp"`
}

// A Token is the locally cached record of an externally indexed on-chain
// token. It is created on first reference once the index confirms it exists.
type Token struct {
	TokenAddress string    `json:"tokenAddress"`
	Like         int       `json:"like"`
	Timestamp    time.Time `json:"timestamp"`
}

// A Message is a post on a token's feed, or a reply when ParentID is set.
// Liked is a per-request annotation, only meaningful in listings where the
// requesting address is known.
type Message struct {
	ID           string    `json:"_id"`
	Address      string    `json:"address"`
	TokenAddress string    `json:"tokenAddress"`
	Message      string    `json:"message"`
	ParentID     string    `json:"id"`
	Like         int       `json:"like"`
	Timestamp    time.Time `json:"timestamp"`
	Liked        bool      `json:"liked"`
}

// A Like marks an address liking a token.
type Like struct {
	Address      string    `json:"address"`
	TokenAddress string    `json:"tokenAddress"`
	Timestamp    time.Time `json:"timestamp"`
}

// A MessageLike marks an address liking a message.
type MessageLike struct {
	Address   string    `json:"address"`
	MessageID string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// A UserLike marks an address liking another user.
type UserLike struct {
	Address     string    `json:"address"`
	UserAddress string    `json:"userAddress"`
	Timestamp   time.Time `json:"timestamp"`
}

// A Follow marks an address following a user.
type Follow struct {
	Address     string    `json:"address"`
	UserAddress string    `json:"userAddress"`
	Timestamp   time.Time `json:"timestamp"`
}

// A UserCounter names one of the denormalized counters on a user row.
type UserCounter string

const (
	UserCounterLike            UserCounter = "like"
	UserCounterMessagesLikes   UserCounter = "messagesLikes"
	UserCounterMessagesReplies UserCounter = "messagesReplies"
	UserCounterFollowers       UserCounter = "followers"
)

// A Page bounds a listing. Zero values mean no bound, matching the skip and
// limit query parameters.
type Page struct {
	Skip  int
	Limit int
}

// A MessageFilter selects messages by any combination of token, author and
// parent message. Listings are sorted by timestamp, descending unless
// Ascending is set.
type MessageFilter struct {
	TokenAddress string
	Address      string
	ParentID     string
	Ascending    bool
	Page
}
