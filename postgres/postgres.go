// Package postgres provides the PostgreSQL storage layer. Relation writes
// use ON CONFLICT upserts and keyed deletes whose reported row counts are
// the toggle outcome: the caller adjusts counters only when a row was
// actually created or removed, so concurrent identical requests cannot
// drift the counters.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/ambrosus/ambrodeo-backend/api"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and pings it to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// CreateSchema creates the tables if they do not exist yet.
func (pg *Postgres) CreateSchema(ctx context.Context) error {
	models := []any{
		(*user)(nil),
		(*token)(nil),
		(*message)(nil),
		(*like)(nil),
		(*userLike)(nil),
		(*messageLike)(nil),
		(*follow)(nil),
	}
	for _, m := range models {
		if _, err := pg.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// GetUser returns the user stored under the address, reporting whether one
// exists.
func (pg *Postgres) GetUser(ctx context.Context, address string) (api.User, bool, error) {
	var u user
	err := pg.bun.NewSelect().Model(&u).Where("address = ?", address).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.User{}, false, nil
	}
	if err != nil {
		return api.User{}, false, fmt.Errorf("select user: %w", err)
	}
	return u.APIUser(), true, nil
}

// UpsertUser creates or updates a profile. Only the provided fields are
// written on update; a nil field leaves the stored value untouched.
func (pg *Postgres) UpsertUser(ctx context.Context, address string, userName, image *string) error {
	u := &user{Address: address, Timestamp: time.Now()}
	q := pg.bun.NewInsert().Model(u).
		On("CONFLICT (address) DO UPDATE").
		Set("timestamp = EXCLUDED.timestamp")
	if userName != nil {
		u.UserName = *userName
		q = q.Set("user_name = EXCLUDED.user_name")
	}
	if image != nil {
		u.Image = *image
		q = q.Set("image = EXCLUDED.image")
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// EnsureUser inserts an empty profile for the address if none exists.
func (pg *Postgres) EnsureUser(ctx context.Context, address string) error {
	u := &user{Address: address, Timestamp: time.Now()}
	_, err := pg.bun.NewInsert().Model(u).
		On("CONFLICT (address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// AdjustUserCounter moves one of the denormalized user counters by delta.
func (pg *Postgres) AdjustUserCounter(ctx context.Context, address string, counter api.UserCounter, delta int) error {
	var col string
	switch counter {
	case api.UserCounterLike:
		col = "like_count"
	case api.UserCounterMessagesLikes:
		col = "messages_likes"
	case api.UserCounterMessagesReplies:
		col = "messages_replies"
	case api.UserCounterFollowers:
		col = "followers"
	default:
		return fmt.Errorf("unknown user counter %q", counter)
	}
	_, err := pg.bun.NewUpdate().Model((*user)(nil)).
		Set("? = ? + ?", bun.Ident(col), bun.Ident(col), delta).
		Where("address = ?", address).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adjust user %s: %w", col, err)
	}
	return nil
}

func (pg *Postgres) GetToken(ctx context.Context, tokenAddress string) (api.Token, bool, error) {
	var t token
	err := pg.bun.NewSelect().Model(&t).Where("token_address = ?", tokenAddress).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Token{}, false, nil
	}
	if err != nil {
		return api.Token{}, false, fmt.Errorf("select token: %w", err)
	}
	return t.APIToken(), true, nil
}

// UpsertToken materializes a token record. Concurrent resolvers may race on
// the same address; the conflict clause keeps the first row.
func (pg *Postgres) UpsertToken(ctx context.Context, t api.Token) error {
	row := &token{
		TokenAddress: t.TokenAddress,
		LikeCount:    t.Like,
		Timestamp:    t.Timestamp,
	}
	_, err := pg.bun.NewInsert().Model(row).
		On("CONFLICT (token_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// AdjustTokenLike moves the token's like counter by delta.
func (pg *Postgres) AdjustTokenLike(ctx context.Context, tokenAddress string, delta int) error {
	_, err := pg.bun.NewUpdate().Model((*token)(nil)).
		Set("like_count = like_count + ?", delta).
		Where("token_address = ?", tokenAddress).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adjust token like: %w", err)
	}
	return nil
}

// InsertMessage inserts a message and returns it with the generated id.
func (pg *Postgres) InsertMessage(ctx context.Context, msg api.Message) (api.Message, error) {
	m := &message{
		ID:           uuid.NewString(),
		Address:      msg.Address,
		TokenAddress: msg.TokenAddress,
		MessageText:  msg.Message,
		ParentID:     msg.ParentID,
		Timestamp:    msg.Timestamp,
	}
	if _, err := pg.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return api.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m.APIMessage(), nil
}

func (pg *Postgres) GetMessage(ctx context.Context, id string) (api.Message, bool, error) {
	var m message
	err := pg.bun.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Message{}, false, nil
	}
	if err != nil {
		return api.Message{}, false, fmt.Errorf("select message: %w", err)
	}
	return m.APIMessage(), true, nil
}

// AdjustMessageLike moves the message's like counter by delta.
func (pg *Postgres) AdjustMessageLike(ctx context.Context, id string, delta int) error {
	_, err := pg.bun.NewUpdate().Model((*message)(nil)).
		Set("like_count = like_count + ?", delta).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adjust message like: %w", err)
	}
	return nil
}

// ListMessages returns the full match count and one page of messages.
func (pg *Postgres) ListMessages(ctx context.Context, filter api.MessageFilter) (int, []api.Message, error) {
	var msgs []message
	q := pg.bun.NewSelect().Model(&msgs)
	if filter.TokenAddress != "" {
		q = q.Where("token_address = ?", filter.TokenAddress)
	}
	if filter.Address != "" {
		q = q.Where("address = ?", filter.Address)
	}
	if filter.ParentID != "" {
		q = q.Where("parent_id = ?", filter.ParentID)
	}
	if filter.Ascending {
		q = q.Order("timestamp ASC")
	} else {
		q = q.Order("timestamp DESC")
	}
	q = applyPage(q, filter.Page)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("scan messages: %w", err)
	}
	out := make([]api.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.APIMessage()
	}
	return total, out, nil
}

func (pg *Postgres) UpsertLike(ctx context.Context, address, tokenAddress string) (bool, error) {
	l := &like{Address: address, TokenAddress: tokenAddress, Timestamp: time.Now()}
	res, err := pg.bun.NewInsert().Model(l).
		On("CONFLICT (address, token_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) DeleteLike(ctx context.Context, address, tokenAddress string) (bool, error) {
	res, err := pg.bun.NewDelete().Model((*like)(nil)).
		Where("address = ? AND token_address = ?", address, tokenAddress).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) ListLikes(ctx context.Context, address string, page api.Page) (int, []api.Like, error) {
	var likes []like
	q := pg.bun.NewSelect().Model(&likes).
		Where("address = ?", address).
		Order("timestamp DESC")
	q = applyPage(q, page)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("scan likes: %w", err)
	}
	out := make([]api.Like, len(likes))
	for i, l := range likes {
		out[i] = l.APILike()
	}
	return total, out, nil
}

func (pg *Postgres) UpsertUserLike(ctx context.Context, address, userAddress string) (bool, error) {
	l := &userLike{Address: address, UserAddress: userAddress, Timestamp: time.Now()}
	res, err := pg.bun.NewInsert().Model(l).
		On("CONFLICT (address, user_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert user like: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) DeleteUserLike(ctx context.Context, address, userAddress string) (bool, error) {
	res, err := pg.bun.NewDelete().Model((*userLike)(nil)).
		Where("address = ? AND user_address = ?", address, userAddress).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete user like: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) HasUserLike(ctx context.Context, address, userAddress string) (bool, error) {
	ok, err := pg.bun.NewSelect().Model((*userLike)(nil)).
		Where("address = ? AND user_address = ?", address, userAddress).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("user like exists: %w", err)
	}
	return ok, nil
}

func (pg *Postgres) UpsertMessageLike(ctx context.Context, address, messageID string) (bool, error) {
	l := &messageLike{Address: address, MessageID: messageID, Timestamp: time.Now()}
	res, err := pg.bun.NewInsert().Model(l).
		On("CONFLICT (address, message_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert message like: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) DeleteMessageLike(ctx context.Context, address, messageID string) (bool, error) {
	res, err := pg.bun.NewDelete().Model((*messageLike)(nil)).
		Where("address = ? AND message_id = ?", address, messageID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete message like: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) HasMessageLike(ctx context.Context, address, messageID string) (bool, error) {
	ok, err := pg.bun.NewSelect().Model((*messageLike)(nil)).
		Where("address = ? AND message_id = ?", address, messageID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("message like exists: %w", err)
	}
	return ok, nil
}

func (pg *Postgres) ListMessageLikes(ctx context.Context, address string, page api.Page) (int, []api.MessageLike, error) {
	var likes []messageLike
	q := pg.bun.NewSelect().Model(&likes).
		Where("address = ?", address).
		Order("timestamp DESC")
	q = applyPage(q, page)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("scan message likes: %w", err)
	}
	out := make([]api.MessageLike, len(likes))
	for i, l := range likes {
		out[i] = l.APIMessageLike()
	}
	return total, out, nil
}

func (pg *Postgres) UpsertFollow(ctx context.Context, address, userAddress string) (bool, error) {
	f := &follow{Address: address, UserAddress: userAddress, Timestamp: time.Now()}
	res, err := pg.bun.NewInsert().Model(f).
		On("CONFLICT (address, user_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) DeleteFollow(ctx context.Context, address, userAddress string) (bool, error) {
	res, err := pg.bun.NewDelete().Model((*follow)(nil)).
		Where("address = ? AND user_address = ?", address, userAddress).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	return inserted(res)
}

func (pg *Postgres) HasFollow(ctx context.Context, address, userAddress string) (bool, error) {
	ok, err := pg.bun.NewSelect().Model((*follow)(nil)).
		Where("address = ? AND user_address = ?", address, userAddress).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("follow exists: %w", err)
	}
	return ok, nil
}

func (pg *Postgres) ListFollowers(ctx context.Context, userAddress string, page api.Page) (int, []api.Follow, error) {
	return pg.listFollows(ctx, "user_address", userAddress, page)
}

func (pg *Postgres) ListFollowed(ctx context.Context, address string, page api.Page) (int, []api.Follow, error) {
	return pg.listFollows(ctx, "address", address, page)
}

func (pg *Postgres) listFollows(ctx context.Context, col, value string, page api.Page) (int, []api.Follow, error) {
	var follows []follow
	q := pg.bun.NewSelect().Model(&follows).
		Where("? = ?", bun.Ident(col), value).
		Order("timestamp DESC")
	q = applyPage(q, page)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("scan follows: %w", err)
	}
	out := make([]api.Follow, len(follows))
	for i, f := range follows {
		out[i] = f.APIFollow()
	}
	return total, out, nil
}

func applyPage(q *bun.SelectQuery, page api.Page) *bun.SelectQuery {
	if page.Skip > 0 {
		q = q.Offset(page.Skip)
	}
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	return q
}

// inserted reports whether a write touched exactly one row, which for the
// conflict-guarded inserts and keyed deletes above means a state transition
// happened.
func inserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
