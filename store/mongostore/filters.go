package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func handleOrEmailFilter(handle, email string) bson.M {
	or := bson.A{}
	if handle != "" {
		or = append(or, bson.M{"username": handle})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	return bson.M{"$or": or}
}

// activeConfirmationFilter matches an unconfirmed account whose confirmation
// token equals key and expires strictly after now.
func activeConfirmationFilter(key string, now time.Time) bson.M {
	return bson.M{
		"confirmationToken":   key,
		"confirmationExpires": bson.M{"$gt": now},
		"isConfirmed":         false,
	}
}

func activeResetFilter(digest string, now time.Time) bson.M {
	return bson.M{
		"resetToken":        digest,
		"resetTokenExpires": bson.M{"$gt": now},
	}
}

func unconfirmedFilter(id string) bson.M {
	f := idFilter(id)
	f["isConfirmed"] = false
	return f
}

func expiredUnconfirmedFilter(now time.Time) bson.M {
	return bson.M{
		"isConfirmed":         false,
		"confirmationExpires": bson.M{"$lte": now},
	}
}

func setConfirmationUpdate(key string, expiresAt, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"confirmationToken":   key,
		"confirmationExpires": expiresAt,
		"updatedAt":           now,
	}}
}

func setResetUpdate(digest string, expiresAt, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"resetToken":        digest,
		"resetTokenExpires": expiresAt,
		"updatedAt":         now,
	}}
}

func consumeConfirmationUpdate(now time.Time) bson.M {
	return bson.M{
		"$set":   bson.M{"isConfirmed": true, "updatedAt": now},
		"$unset": bson.M{"confirmationToken": "", "confirmationExpires": ""},
	}
}

func consumeResetUpdate(passwordHash string, now time.Time) bson.M {
	return bson.M{
		"$set":   bson.M{"passwordHash": passwordHash, "updatedAt": now},
		"$unset": bson.M{"resetToken": "", "resetTokenExpires": ""},
	}
}

func passwordHashUpdate(passwordHash string, now time.Time) bson.M {
	return bson.M{"$set": bson.M{"passwordHash": passwordHash, "updatedAt": now}}
}
