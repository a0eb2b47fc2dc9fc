// Package mail defines the contracts for sending email messages.
//
// Use cases depend on the Mail interface and the Message payload. Two SMTP
// transports are provided: SMTP opens one connection per message and Pool keeps
// a bounded set of persistent connections for higher throughput.
package mail
