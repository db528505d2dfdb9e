package service

import (
	"context"
	"testing"

	"cafehub/internal/model"
	"cafehub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMessageService(t *testing.T) (*MessageService, *gorm.DB) {
	t.Helper()
	pool := testutil.NewPool(t)
	svc := NewMessageService(pool)
	svc.now = clock
	return svc, pool.DB()
}

func readStatusOf(t *testing.T, db *gorm.DB, id int64) int8 {
	t.Helper()
	var msg model.Message
	require.NoError(t, db.First(&msg, id).Error)
	return msg.ReadStatus
}

func TestMarkRead_Idempotent(t *testing.T) {
	svc, db := newMessageService(t)
	admin := testutil.SeedAdmin(t, db, "boss")
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	msg := testutil.SeedMessage(t, db, admin.ID, alice.ID)

	result, err := svc.MarkRead(context.Background(), msg.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, MarkReadRead, result)

	result, err = svc.MarkRead(context.Background(), msg.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, MarkReadAlreadyRead, result)

	assert.Equal(t, model.MessageRead, readStatusOf(t, db, msg.ID))
}

func TestMarkRead_NonReceiverNeverMutates(t *testing.T) {
	svc, db := newMessageService(t)
	admin := testutil.SeedAdmin(t, db, "boss")
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	bob := testutil.SeedCustomer(t, db, "bob", "0")
	msg := testutil.SeedMessage(t, db, admin.ID, alice.ID)

	for _, who := range []int64{admin.ID, bob.ID, 404} {
		result, err := svc.MarkRead(context.Background(), msg.ID, who)
		require.NoError(t, err)
		assert.Equal(t, MarkReadNotAuthorized, result)
	}
	assert.Equal(t, model.MessageUnread, readStatusOf(t, db, msg.ID))

	// 已读之后非收件人依然是 NotAuthorized
	_, err := svc.MarkRead(context.Background(), msg.ID, alice.ID)
	require.NoError(t, err)
	result, err := svc.MarkRead(context.Background(), msg.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, MarkReadNotAuthorized, result)
}

func TestMarkRead_UnknownMessage(t *testing.T) {
	svc, _ := newMessageService(t)

	result, err := svc.MarkRead(context.Background(), 404, 1)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	assert.Equal(t, MarkReadUnknown, result)
}

func TestMarkRead_DuplicateRequestRacingIsAlreadyRead(t *testing.T) {
	svc, db := newMessageService(t)
	admin := testutil.SeedAdmin(t, db, "boss")
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	msg := testutil.SeedMessage(t, db, admin.ID, alice.ID)

	beforeUpdateOn(t, db, "message", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE message SET read_status = 1 WHERE id = ?", msg.ID).Error)
	})

	result, err := svc.MarkRead(context.Background(), msg.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, MarkReadAlreadyRead, result)
}

func TestMarkRead_ZeroRowsIsConcurrencyAnomaly(t *testing.T) {
	svc, db := newMessageService(t)
	admin := testutil.SeedAdmin(t, db, "boss")
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	msg := testutil.SeedMessage(t, db, admin.ID, alice.ID)

	beforeUpdateOn(t, db, "message", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("DELETE FROM message WHERE id = ?", msg.ID).Error)
	})

	result, err := svc.MarkRead(context.Background(), msg.ID, alice.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, MarkReadUnknown, result)
	assert.Equal(t, "unknown", result.String())
}

func TestSend(t *testing.T) {
	svc, db := newMessageService(t)
	admin := testutil.SeedAdmin(t, db, "boss")
	alice := testutil.SeedCustomer(t, db, "alice", "0")
	title := "通知"

	out, err := svc.Send(context.Background(), &SendMessageRequest{
		SenderID: admin.ID, ReceiverID: alice.ID, Title: &title, Content: "本周六闭店",
	})
	require.NoError(t, err)
	assert.Equal(t, MessageSent, out.Result)
	assert.Equal(t, model.MessageUnread, readStatusOf(t, db, out.MessageID))

	out, err = svc.Send(context.Background(), &SendMessageRequest{SenderID: 404, ReceiverID: alice.ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, SendSenderNotFound, out.Result)

	out, err = svc.Send(context.Background(), &SendMessageRequest{SenderID: admin.ID, ReceiverID: 404, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, SendReceiverNotFound, out.Result)

	_, err = svc.Send(context.Background(), &SendMessageRequest{SenderID: admin.ID, ReceiverID: admin.ID, Content: "hi"})
	assert.True(t, IsValidation(err))

	_, err = svc.Send(context.Background(), &SendMessageRequest{SenderID: admin.ID, ReceiverID: alice.ID, Content: " "})
	assert.True(t, IsValidation(err))
}

func TestSendToAdmin(t *testing.T) {
	svc, db := newMessageService(t)
	alice := testutil.SeedCustomer(t, db, "alice", "0")

	out, err := svc.SendToAdmin(context.Background(), &SendToAdminRequest{SenderID: alice.ID, Content: "咖啡太凉"})
	require.NoError(t, err)
	assert.Equal(t, SendAdminNotFound, out.Result)

	first := testutil.SeedAdmin(t, db, "boss")
	testutil.SeedAdmin(t, db, "boss2")

	out, err = svc.SendToAdmin(context.Background(), &SendToAdminRequest{SenderID: alice.ID, Content: "咖啡太凉"})
	require.NoError(t, err)
	require.Equal(t, MessageSent, out.Result)

	var msg model.Message
	require.NoError(t, db.First(&msg, out.MessageID).Error)
	assert.Equal(t, first.ID, msg.ReceiverID)

	_, err = svc.SendToAdmin(context.Background(), &SendToAdminRequest{SenderID: first.ID, Content: "hi"})
	assert.True(t, IsValidation(err))

	out, err = svc.SendToAdmin(context.Background(), &SendToAdminRequest{SenderID: 404, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, SendSenderNotFound, out.Result)
}
