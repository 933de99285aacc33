// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package whatsapp

import (
	"strings"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"go.mau.fi/whatsmeow/types"
)

// legacyUserServer is the user suffix used by browser-based clients and by
// MY_PHONE_NUMBER values such as 569XXXXXXXX@c.us.
const legacyUserServer = "c.us"

// ParseRecipient accepts "569XXXXXXXX", "569XXXXXXXX@c.us" or a full
// s.whatsapp.net JID and returns the user JID.
func ParseRecipient(s string) (types.JID, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if s == "" {
		return types.EmptyJID, scribeerr.New(scribeerr.CodeSessionRecipientInvalid, "recipient is empty")
	}

	user, server, found := strings.Cut(s, "@")
	if !found || server == legacyUserServer {
		server = types.DefaultUserServer
	}
	if server != types.DefaultUserServer {
		return types.EmptyJID, scribeerr.New(scribeerr.CodeSessionRecipientInvalid,
			"recipient must be a user address, got "+s, scribeerr.FieldRecipient(s))
	}
	for _, ch := range user {
		if ch < '0' || ch > '9' {
			return types.EmptyJID, scribeerr.New(scribeerr.CodeSessionRecipientInvalid,
				"recipient must be a phone number, got "+s, scribeerr.FieldRecipient(s))
		}
	}
	if user == "" {
		return types.EmptyJID, scribeerr.New(scribeerr.CodeSessionRecipientInvalid,
			"recipient must be a phone number, got "+s, scribeerr.FieldRecipient(s))
	}

	return types.NewJID(user, types.DefaultUserServer), nil
}

// ChatID renders a chat JID in the identifier format used across the bot:
// users as "<number>@c.us", groups as "<id>@g.us".
func ChatID(jid types.JID) string {
	if jid.Server == types.DefaultUserServer {
		return jid.User + "@" + legacyUserServer
	}
	return jid.ToNonAD().String()
}
