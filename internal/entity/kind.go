// Package entity normalizes Bot API payload fragments into flat string
// attribute records and keeps them in an in-memory cache backed by a
// write-through store.
package entity

// Kind identifies a class of normalized records.
type Kind string

const (
	KindUpdate      Kind = "update"
	KindMessage     Kind = "message"
	KindChannelPost Kind = "channel_post"
	KindUser        Kind = "user"
	KindChat        Kind = "chat"
	KindChatMember  Kind = "chat_member"
	KindFile        Kind = "file"
	KindStickerSet  Kind = "sticker_set"
	KindButton      Kind = "button"
	KindButtonList  Kind = "button_list"
)

// Kinds lists every record kind stored in per-kind tables.
// KindStickerSet is handled separately because it carries an ordered member list.
var Kinds = []Kind{
	KindUpdate,
	KindMessage,
	KindChannelPost,
	KindUser,
	KindChat,
	KindChatMember,
	KindFile,
	KindButton,
	KindButtonList,
}
