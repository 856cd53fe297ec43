// Package notify renders account notifications into email messages and
// hands them to a Sender.
//
// A Mailer implements goAccount.Notifier. Senders are transports: the smtp
// subpackage delivers through a pooled SMTP connection and LogSender writes
// messages to a zap logger for local development.
package notify
