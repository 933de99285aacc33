// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package whatsapp

import (
	"context"
	"errors"
	"time"

	"github.com/scribe-dev/scribe/internal/session"
	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// Message kinds.
const (
	KindChat     = "chat"
	KindPTT      = "ptt"
	KindAudio    = "audio"
	KindImage    = "image"
	KindVideo    = "video"
	KindDocument = "document"
	KindSticker  = "sticker"
	KindUnknown  = "unknown"
)

// message adapts an inbound whatsmeow message.
type message struct {
	client *whatsmeow.Client
	evt    *events.Message
	now    func() time.Time
}

var _ session.Message = (*message)(nil)

func (m *message) ID() string           { return m.evt.Info.ID }
func (m *message) From() string         { return ChatID(m.evt.Info.Chat) }
func (m *message) FromMe() bool         { return m.evt.Info.IsFromMe }
func (m *message) Timestamp() time.Time { return m.evt.Info.Timestamp }
func (m *message) Kind() string         { return kindOf(m.evt.Message) }
func (m *message) Body() string         { return bodyOf(m.evt.Message) }
func (m *message) HasMedia() bool       { return downloadable(m.evt.Message) != nil }

func kindOf(msg *waE2E.Message) string {
	switch {
	case msg.GetAudioMessage() != nil:
		if msg.GetAudioMessage().GetPTT() {
			return KindPTT
		}
		return KindAudio
	case msg.GetImageMessage() != nil:
		return KindImage
	case msg.GetVideoMessage() != nil:
		return KindVideo
	case msg.GetDocumentMessage() != nil:
		return KindDocument
	case msg.GetStickerMessage() != nil:
		return KindSticker
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return KindChat
	default:
		return KindUnknown
	}
}

func bodyOf(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage() != nil:
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

type attachment struct {
	media    whatsmeow.DownloadableMessage
	mimeType string
	filename string
}

func downloadable(msg *waE2E.Message) *attachment {
	switch {
	case msg.GetAudioMessage() != nil:
		a := msg.GetAudioMessage()
		return &attachment{media: a, mimeType: a.GetMimetype()}
	case msg.GetImageMessage() != nil:
		a := msg.GetImageMessage()
		return &attachment{media: a, mimeType: a.GetMimetype()}
	case msg.GetVideoMessage() != nil:
		a := msg.GetVideoMessage()
		return &attachment{media: a, mimeType: a.GetMimetype()}
	case msg.GetDocumentMessage() != nil:
		a := msg.GetDocumentMessage()
		return &attachment{media: a, mimeType: a.GetMimetype(), filename: a.GetFileName()}
	case msg.GetStickerMessage() != nil:
		a := msg.GetStickerMessage()
		return &attachment{media: a, mimeType: a.GetMimetype()}
	}
	return nil
}

func (m *message) DownloadMedia(ctx context.Context) (*session.Media, error) {
	att := downloadable(m.evt.Message)
	if att == nil {
		return nil, nil
	}

	data, err := m.client.Download(ctx, att.media)
	if errors.Is(err, whatsmeow.ErrMediaDownloadFailedWith404) || errors.Is(err, whatsmeow.ErrMediaDownloadFailedWith410) {
		return nil, nil
	}
	if err != nil {
		return nil, scribeerr.Wrap(err, scribeerr.CodeMediaDownloadFailure,
			"downloading media", scribeerr.FieldMessageID(m.evt.Info.ID))
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &session.Media{MimeType: att.mimeType, Data: data, Filename: att.filename}, nil
}

// Reply sends text to the originating chat, quoting the message.
func (m *message) Reply(ctx context.Context, text string) error {
	info := m.evt.Info
	reply := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(info.ID),
				Participant:   proto.String(info.Sender.ToNonAD().String()),
				QuotedMessage: m.evt.Message,
			},
		},
	}

	if _, err := m.client.SendMessage(ctx, info.Chat, reply); err != nil {
		return scribeerr.Wrap(err, scribeerr.CodeRelaySendFailure,
			"sending reply", scribeerr.FieldMessageID(info.ID), scribeerr.FieldChat(ChatID(info.Chat)))
	}
	return nil
}

func (m *message) Chat(ctx context.Context) (session.ChatInfo, error) {
	chat := m.evt.Info.Chat
	info := session.ChatInfo{ID: ChatID(chat), IsGroup: chat.Server == types.GroupServer}

	settings, err := m.client.Store.ChatSettings.GetChatSettings(ctx, chat)
	if err != nil {
		return info, scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure,
			"loading chat settings", scribeerr.FieldChat(info.ID))
	}
	info.IsMuted = muted(settings.MutedUntil, m.now())
	return info, nil
}

// muted reports whether a mute deadline is still in effect. Deadlines at or
// before the epoch mean "muted forever".
func muted(until, now time.Time) bool {
	if until.IsZero() {
		return false
	}
	return until.Unix() <= 0 || until.After(now)
}

func (m *message) Contact(ctx context.Context) (session.ContactInfo, error) {
	sender := m.evt.Info.Sender.ToNonAD()
	info := session.ContactInfo{ID: ChatID(sender), PushName: m.evt.Info.PushName}

	contact, err := m.client.Store.Contacts.GetContact(ctx, sender)
	if err != nil {
		return info, scribeerr.Wrap(err, scribeerr.CodeSessionStoreFailure,
			"loading contact", scribeerr.FieldChat(info.ID))
	}
	if !contact.Found {
		return info, nil
	}

	info.Name = contact.FullName
	if info.Name == "" {
		info.Name = contact.FirstName
	}
	if info.PushName == "" {
		info.PushName = contact.PushName
	}
	info.IsMyContact = contact.FullName != ""
	return info, nil
}
