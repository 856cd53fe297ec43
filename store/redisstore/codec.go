package redisstore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

// Hash field names mirror the document layout used by the Mongo store.
const (
	fieldID                  = "id"
	fieldUsername            = "username"
	fieldEmail               = "email"
	fieldPasswordHash        = "passwordHash"
	fieldRole                = "role"
	fieldIsConfirmed         = "isConfirmed"
	fieldConfirmationToken   = "confirmationToken"
	fieldConfirmationExpires = "confirmationExpires"
	fieldResetToken          = "resetToken"
	fieldResetTokenExpires   = "resetTokenExpires"
	fieldCreatedAt           = "createdAt"
	fieldUpdatedAt           = "updatedAt"
)

var errMalformedRecord = errors.New("malformed account record")

func formatMillis(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeAccount(fields map[string]string) (*store.Account, error) {
	id := fields[fieldID]
	if id == "" {
		return nil, errMalformedRecord
	}

	acc := &store.Account{
		ID:           id,
		Username:     fields[fieldUsername],
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
		Role:         fields[fieldRole],
		Confirmed:    fields[fieldIsConfirmed] == "1",
	}

	var err error
	if acc.Confirmation, err = decodeToken(fields[fieldConfirmationToken], fields[fieldConfirmationExpires]); err != nil {
		return nil, err
	}
	if acc.Reset, err = decodeToken(fields[fieldResetToken], fields[fieldResetTokenExpires]); err != nil {
		return nil, err
	}
	if acc.CreatedAt, err = parseMillis(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("%w: createdAt: %v", errMalformedRecord, err)
	}
	if acc.UpdatedAt, err = parseMillis(fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("%w: updatedAt: %v", errMalformedRecord, err)
	}
	return acc, nil
}

func decodeToken(key, expires string) (*store.Token, error) {
	if key == "" {
		return nil, nil
	}
	exp, err := parseMillis(expires)
	if err != nil {
		return nil, fmt.Errorf("%w: token expiry: %v", errMalformedRecord, err)
	}
	return &store.Token{Key: key, ExpiresAt: exp}, nil
}

// decodeFlat turns an HGETALL reply returned from a Lua script into a map.
func decodeFlat(reply any) (map[string]string, error) {
	items, ok := reply.([]any)
	if !ok || len(items)%2 != 0 {
		return nil, errMalformedRecord
	}

	out := make(map[string]string, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		k, kok := items[i].(string)
		v, vok := items[i+1].(string)
		if !kok || !vok {
			return nil, errMalformedRecord
		}
		out[k] = v
	}
	return out, nil
}
