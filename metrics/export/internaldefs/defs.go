package internaldefs

import (
	"github.com/MrEthical07/goAccount"
)

// BucketCount is the number of latency buckets, including +Inf.
const BucketCount = 8

type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goAccount.MetricRegisterSuccess, Name: "goaccount_register_success_total", Help: "Accounts registered."},
	{ID: goAccount.MetricRegisterDuplicate, Name: "goaccount_register_duplicate_total", Help: "Registrations rejected for a taken username or email."},
	{ID: goAccount.MetricRegisterFailure, Name: "goaccount_register_failure_total", Help: "Registrations rejected for invalid input or store errors."},
	{ID: goAccount.MetricConfirmationIssued, Name: "goaccount_confirmation_issued_total", Help: "Confirmation links re-issued."},
	{ID: goAccount.MetricConfirmationSuccess, Name: "goaccount_confirmation_success_total", Help: "Accounts confirmed."},
	{ID: goAccount.MetricConfirmationFailure, Name: "goaccount_confirmation_failure_total", Help: "Confirmation attempts with an invalid or expired token."},
	{ID: goAccount.MetricPasswordResetRequest, Name: "goaccount_password_reset_request_total", Help: "Password reset requests, including unknown emails."},
	{ID: goAccount.MetricPasswordResetUnknownEmail, Name: "goaccount_password_reset_unknown_email_total", Help: "Password reset requests for emails with no account."},
	{ID: goAccount.MetricPasswordResetSuccess, Name: "goaccount_password_reset_success_total", Help: "Passwords replaced through a reset token."},
	{ID: goAccount.MetricPasswordResetFailure, Name: "goaccount_password_reset_failure_total", Help: "Failed password reset confirmations."},
	{ID: goAccount.MetricDeliverySuccess, Name: "goaccount_delivery_success_total", Help: "Notifications handed to the notifier."},
	{ID: goAccount.MetricDeliveryFailure, Name: "goaccount_delivery_failure_total", Help: "Notifications the notifier failed to deliver."},
	{ID: goAccount.MetricDeliveryDropped, Name: "goaccount_delivery_dropped_total", Help: "Notifications rejected by a full queue."},
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful credential checks."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed credential checks."},
	{ID: goAccount.MetricPasswordHashUpgraded, Name: "goaccount_password_hash_upgraded_total", Help: "Stored hashes rehashed with current parameters on login."},
	{ID: goAccount.MetricStoreUnavailable, Name: "goaccount_store_unavailable_total", Help: "Account store calls that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricPasswordHashLatency, Name: "goaccount_password_hash_seconds", Help: "Password hashing latency."},
}

// HistogramBounds are the bucket upper bounds in seconds; the last bucket
// is +Inf and has no entry.
var HistogramBounds = [BucketCount - 1]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// NormalizeBuckets copies raw into a fixed-size array; missing buckets are
// zero.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
