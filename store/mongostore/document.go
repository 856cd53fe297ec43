package mongostore

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// accountDocument is the "users" collection layout. Field names match the
// documents written by earlier deployments, so existing collections can be
// served without migration.
type accountDocument struct {
	ID                  bson.RawValue `bson:"_id"`
	Username            string        `bson:"username"`
	Email               string        `bson:"email"`
	PasswordHash        string        `bson:"passwordHash"`
	Role                string        `bson:"role"`
	IsConfirmed         bool          `bson:"isConfirmed"`
	ConfirmationToken   string        `bson:"confirmationToken,omitempty"`
	ConfirmationExpires *time.Time    `bson:"confirmationExpires,omitempty"`
	ResetToken          string        `bson:"resetToken,omitempty"`
	ResetTokenExpires   *time.Time    `bson:"resetTokenExpires,omitempty"`
	CreatedAt           time.Time     `bson:"createdAt"`
	UpdatedAt           time.Time     `bson:"updatedAt"`
}

func newDocument(acc *store.Account) bson.M {
	doc := bson.M{
		"_id":          acc.ID,
		"username":     acc.Username,
		"email":        acc.Email,
		"passwordHash": acc.PasswordHash,
		"role":         acc.Role,
		"isConfirmed":  acc.Confirmed,
		"createdAt":    acc.CreatedAt,
		"updatedAt":    acc.UpdatedAt,
	}
	if acc.Confirmation != nil && acc.Confirmation.Key != "" {
		doc["confirmationToken"] = acc.Confirmation.Key
		doc["confirmationExpires"] = acc.Confirmation.ExpiresAt
	}
	if acc.Reset != nil && acc.Reset.Key != "" {
		doc["resetToken"] = acc.Reset.Key
		doc["resetTokenExpires"] = acc.Reset.ExpiresAt
	}
	return doc
}

func (d *accountDocument) toAccount() (*store.Account, error) {
	id, err := documentID(d.ID)
	if err != nil {
		return nil, err
	}

	acc := &store.Account{
		ID:           id,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Confirmed:    d.IsConfirmed,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.ConfirmationToken != "" && d.ConfirmationExpires != nil {
		acc.Confirmation = &store.Token{Key: d.ConfirmationToken, ExpiresAt: d.ConfirmationExpires.UTC()}
	}
	if d.ResetToken != "" && d.ResetTokenExpires != nil {
		acc.Reset = &store.Token{Key: d.ResetToken, ExpiresAt: d.ResetTokenExpires.UTC()}
	}
	return acc, nil
}

// documentID accepts both string ids and the ObjectIDs of legacy documents.
func documentID(v bson.RawValue) (string, error) {
	switch v.Type {
	case bsontype.String:
		return v.StringValue(), nil
	case bsontype.ObjectID:
		return v.ObjectID().Hex(), nil
	default:
		return "", fmt.Errorf("unsupported _id type %s", v.Type)
	}
}

// idFilter matches an account by id. Hex ids that parse as ObjectIDs also
// match legacy documents keyed by ObjectID.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}
