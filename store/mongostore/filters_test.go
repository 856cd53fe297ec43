package mongostore

import (
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestActiveConfirmationFilterBoundsExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := activeConfirmationFilter("key", now)

	require.Equal(t, "key", f["confirmationToken"])
	require.Equal(t, false, f["isConfirmed"])
	require.Equal(t, bson.M{"$gt": now}, f["confirmationExpires"])
}

func TestActiveResetFilterBoundsExpiry(t *testing.T) {
	now := time.Now()
	f := activeResetFilter("digest", now)

	require.Equal(t, "digest", f["resetToken"])
	require.Equal(t, bson.M{"$gt": now}, f["resetTokenExpires"])
	_, hasConfirmed := f["isConfirmed"]
	require.False(t, hasConfirmed, "reset is allowed for unconfirmed accounts")
}

func TestConsumeUpdatesClearTokenFields(t *testing.T) {
	now := time.Now()

	c := consumeConfirmationUpdate(now)
	require.Equal(t, bson.M{"isConfirmed": true, "updatedAt": now}, c["$set"])
	require.Equal(t, bson.M{"confirmationToken": "", "confirmationExpires": ""}, c["$unset"])

	r := consumeResetUpdate("new-hash", now)
	require.Equal(t, bson.M{"passwordHash": "new-hash", "updatedAt": now}, r["$set"])
	require.Equal(t, bson.M{"resetToken": "", "resetTokenExpires": ""}, r["$unset"])
}

func TestExpiredUnconfirmedFilter(t *testing.T) {
	now := time.Now()
	f := expiredUnconfirmedFilter(now)

	require.Equal(t, false, f["isConfirmed"])
	require.Equal(t, bson.M{"$lte": now}, f["confirmationExpires"])
}

func TestHandleOrEmailFilter(t *testing.T) {
	f := handleOrEmailFilter("nova", "nova@x.com")
	require.Equal(t, bson.A{bson.M{"username": "nova"}, bson.M{"email": "nova@x.com"}}, f["$or"])

	onlyEmail := handleOrEmailFilter("", "nova@x.com")
	require.Equal(t, bson.A{bson.M{"email": "nova@x.com"}}, onlyEmail["$or"])
}

func TestIDFilterAcceptsLegacyObjectIDs(t *testing.T) {
	require.Equal(t, bson.M{"_id": "b1f0c8f6-1d7e-4f3a-9a53-1a6f6f1a2c11"}, idFilter("b1f0c8f6-1d7e-4f3a-9a53-1a6f6f1a2c11"))

	oid := primitive.NewObjectID()
	f := idFilter(oid.Hex())
	require.Equal(t, bson.M{"$in": bson.A{oid, oid.Hex()}}, f["_id"])

	u := unconfirmedFilter("abc")
	require.Equal(t, "abc", u["_id"])
	require.Equal(t, false, u["isConfirmed"])
}

func TestDocumentRoundTripThroughBSON(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	acc := &store.Account{
		ID:           "acc-1",
		Username:     "nova",
		Email:        "nova@x.com",
		PasswordHash: "hash",
		Role:         "user",
		Confirmation: &store.Token{Key: "ck", ExpiresAt: now.Add(24 * time.Hour)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	raw, err := bson.Marshal(newDocument(acc))
	require.NoError(t, err)

	var doc accountDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.toAccount()
	require.NoError(t, err)

	require.Equal(t, acc.ID, got.ID)
	require.Equal(t, acc.Email, got.Email)
	require.NotNil(t, got.Confirmation)
	require.Equal(t, "ck", got.Confirmation.Key)
	require.True(t, got.Confirmation.ExpiresAt.Equal(acc.Confirmation.ExpiresAt))
	require.Nil(t, got.Reset)
	require.True(t, got.CreatedAt.Equal(now))
}

func TestLegacyObjectIDDocumentDecodes(t *testing.T) {
	oid := primitive.NewObjectID()
	exp := time.Now().UTC().Truncate(time.Millisecond)
	raw, err := bson.Marshal(bson.M{
		"_id":                 oid,
		"username":            "legacy",
		"email":               "legacy@x.com",
		"passwordHash":        "$2a$12$abcdefghijklmnopqrstuv",
		"role":                "user",
		"isConfirmed":         false,
		"confirmationToken":   "plain-token",
		"confirmationExpires": exp,
	})
	require.NoError(t, err)

	var doc accountDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.toAccount()
	require.NoError(t, err)
	require.Equal(t, oid.Hex(), got.ID)
	require.Equal(t, "plain-token", got.Confirmation.Key)
}
