// Package migrate rewrites python-telegram-bot v13 persistence data.
package migrate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yndnr/ptb-migrate/pkg/pickle"
)

// ClassKind separates TelegramObject subclasses from other classes the
// library pickles.
type ClassKind int

const (
	// KindDomain is a TelegramObject subclass. Its instances are written
	// through _reconstruct_to.
	KindDomain ClassKind = iota
	// KindHelper is a non-TelegramObject class. Its instances keep their
	// structural encoding with only the class reference updated.
	KindHelper
)

// String returns the lowercase kind name.
func (k ClassKind) String() string {
	switch k {
	case KindDomain:
		return "domain"
	case KindHelper:
		return "helper"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ClassInfo locates a class in python-telegram-bot v20.
type ClassInfo struct {
	Name   string
	Module string
	Kind   ClassKind
}

// Global returns the reference v20 pickles for the class.
func (c ClassInfo) Global() pickle.Global {
	return pickle.Global{Module: c.Module, Name: c.Name}
}

// Path returns module.Name.
func (c ClassInfo) Path() string {
	return c.Module + "." + c.Name
}

// v20Modules maps each v20 module to the public classes it defines.
var v20Modules = map[string][]string{
	"telegram._botcommand": {"BotCommand"},
	"telegram._botcommandscope": {
		"BotCommandScope", "BotCommandScopeAllChatAdministrators", "BotCommandScopeAllGroupChats",
		"BotCommandScopeAllPrivateChats", "BotCommandScopeChat", "BotCommandScopeChatAdministrators",
		"BotCommandScopeChatMember", "BotCommandScopeDefault",
	},
	"telegram._callbackquery":                 {"CallbackQuery"},
	"telegram._chat":                          {"Chat"},
	"telegram._chatadministratorrights":       {"ChatAdministratorRights"},
	"telegram._chatinvitelink":                {"ChatInviteLink"},
	"telegram._chatjoinrequest":               {"ChatJoinRequest"},
	"telegram._chatlocation":                  {"ChatLocation"},
	"telegram._chatmemberupdated":             {"ChatMemberUpdated"},
	"telegram._chatpermissions":               {"ChatPermissions"},
	"telegram._choseninlineresult":            {"ChosenInlineResult"},
	"telegram._dice":                          {"Dice"},
	"telegram._forcereply":                    {"ForceReply"},
	"telegram._keyboardbutton":                {"KeyboardButton"},
	"telegram._keyboardbuttonpolltype":        {"KeyboardButtonPollType"},
	"telegram._loginurl":                      {"LoginUrl"},
	"telegram._message":                       {"Message"},
	"telegram._messageautodeletetimerchanged": {"MessageAutoDeleteTimerChanged"},
	"telegram._messageentity":                 {"MessageEntity"},
	"telegram._messageid":                     {"MessageId"},
	"telegram._proximityalerttriggered":       {"ProximityAlertTriggered"},
	"telegram._replykeyboardmarkup":           {"ReplyKeyboardMarkup"},
	"telegram._replykeyboardremove":           {"ReplyKeyboardRemove"},
	"telegram._sentwebappmessage":             {"SentWebAppMessage"},
	"telegram._telegramobject":                {"TelegramObject"},
	"telegram._update":                        {"Update"},
	"telegram._user":                          {"User"},
	"telegram._userprofilephotos":             {"UserProfilePhotos"},
	"telegram._webappdata":                    {"WebAppData"},
	"telegram._webappinfo":                    {"WebAppInfo"},
	"telegram._webhookinfo":                   {"WebhookInfo"},
	"telegram._chatmember": {
		"ChatMember", "ChatMemberAdministrator", "ChatMemberBanned", "ChatMemberLeft",
		"ChatMemberMember", "ChatMemberOwner", "ChatMemberRestricted",
	},
	"telegram._menubutton": {"MenuButton", "MenuButtonCommands", "MenuButtonDefault", "MenuButtonWebApp"},
	"telegram._poll":       {"Poll", "PollAnswer", "PollOption"},
	"telegram._videochat": {
		"VideoChatEnded", "VideoChatParticipantsInvited", "VideoChatScheduled", "VideoChatStarted",
	},

	"telegram._files.animation": {"Animation"},
	"telegram._files.audio":     {"Audio"},
	"telegram._files.chatphoto": {"ChatPhoto"},
	"telegram._files.contact":   {"Contact"},
	"telegram._files.document":  {"Document"},
	"telegram._files.file":      {"File"},
	"telegram._files.inputmedia": {
		"InputMedia", "InputMediaAnimation", "InputMediaAudio", "InputMediaDocument",
		"InputMediaPhoto", "InputMediaVideo",
	},
	"telegram._files.location":  {"Location"},
	"telegram._files.photosize": {"PhotoSize"},
	"telegram._files.sticker":   {"MaskPosition", "Sticker", "StickerSet"},
	"telegram._files.venue":     {"Venue"},
	"telegram._files.video":     {"Video"},
	"telegram._files.videonote": {"VideoNote"},
	"telegram._files.voice":     {"Voice"},

	"telegram._games.callbackgame":  {"CallbackGame"},
	"telegram._games.game":          {"Game"},
	"telegram._games.gamehighscore": {"GameHighScore"},

	"telegram._inline.inlinekeyboardbutton":            {"InlineKeyboardButton"},
	"telegram._inline.inlinekeyboardmarkup":            {"InlineKeyboardMarkup"},
	"telegram._inline.inlinequery":                     {"InlineQuery"},
	"telegram._inline.inlinequeryresult":               {"InlineQueryResult"},
	"telegram._inline.inlinequeryresultarticle":        {"InlineQueryResultArticle"},
	"telegram._inline.inlinequeryresultaudio":          {"InlineQueryResultAudio"},
	"telegram._inline.inlinequeryresultcachedaudio":    {"InlineQueryResultCachedAudio"},
	"telegram._inline.inlinequeryresultcacheddocument": {"InlineQueryResultCachedDocument"},
	"telegram._inline.inlinequeryresultcachedgif":      {"InlineQueryResultCachedGif"},
	"telegram._inline.inlinequeryresultcachedmpeg4gif": {"InlineQueryResultCachedMpeg4Gif"},
	"telegram._inline.inlinequeryresultcachedphoto":    {"InlineQueryResultCachedPhoto"},
	"telegram._inline.inlinequeryresultcachedsticker":  {"InlineQueryResultCachedSticker"},
	"telegram._inline.inlinequeryresultcachedvideo":    {"InlineQueryResultCachedVideo"},
	"telegram._inline.inlinequeryresultcachedvoice":    {"InlineQueryResultCachedVoice"},
	"telegram._inline.inlinequeryresultcontact":        {"InlineQueryResultContact"},
	"telegram._inline.inlinequeryresultdocument":       {"InlineQueryResultDocument"},
	"telegram._inline.inlinequeryresultgame":           {"InlineQueryResultGame"},
	"telegram._inline.inlinequeryresultgif":            {"InlineQueryResultGif"},
	"telegram._inline.inlinequeryresultlocation":       {"InlineQueryResultLocation"},
	"telegram._inline.inlinequeryresultmpeg4gif":       {"InlineQueryResultMpeg4Gif"},
	"telegram._inline.inlinequeryresultphoto":          {"InlineQueryResultPhoto"},
	"telegram._inline.inlinequeryresultvenue":          {"InlineQueryResultVenue"},
	"telegram._inline.inlinequeryresultvideo":          {"InlineQueryResultVideo"},
	"telegram._inline.inlinequeryresultvoice":          {"InlineQueryResultVoice"},
	"telegram._inline.inputcontactmessagecontent":      {"InputContactMessageContent"},
	"telegram._inline.inputinvoicemessagecontent":      {"InputInvoiceMessageContent"},
	"telegram._inline.inputlocationmessagecontent":     {"InputLocationMessageContent"},
	"telegram._inline.inputmessagecontent":             {"InputMessageContent"},
	"telegram._inline.inputtextmessagecontent":         {"InputTextMessageContent"},
	"telegram._inline.inputvenuemessagecontent":        {"InputVenueMessageContent"},

	"telegram._passport.credentials": {
		"Credentials", "DataCredentials", "EncryptedCredentials", "FileCredentials",
		"SecureData", "SecureValue",
	},
	"telegram._passport.data":                     {"IdDocumentData", "PersonalDetails", "ResidentialAddress"},
	"telegram._passport.encryptedpassportelement": {"EncryptedPassportElement"},
	"telegram._passport.passportdata":             {"PassportData"},
	"telegram._passport.passportelementerrors": {
		"PassportElementError", "PassportElementErrorDataField", "PassportElementErrorFile",
		"PassportElementErrorFiles", "PassportElementErrorFrontSide", "PassportElementErrorReverseSide",
		"PassportElementErrorSelfie", "PassportElementErrorTranslationFile",
		"PassportElementErrorTranslationFiles", "PassportElementErrorUnspecified",
	},
	"telegram._passport.passportfile": {"PassportFile"},

	"telegram._payment.invoice":           {"Invoice"},
	"telegram._payment.labeledprice":      {"LabeledPrice"},
	"telegram._payment.orderinfo":         {"OrderInfo"},
	"telegram._payment.precheckoutquery":  {"PreCheckoutQuery"},
	"telegram._payment.shippingaddress":   {"ShippingAddress"},
	"telegram._payment.shippingoption":    {"ShippingOption"},
	"telegram._payment.shippingquery":     {"ShippingQuery"},
	"telegram._payment.successfulpayment": {"SuccessfulPayment"},
}

// v20Helpers are pickled library classes that are not TelegramObjects.
var v20Helpers = map[string][]string{
	"telegram._files.inputfile":    {"InputFile"},
	"telegram._utils.defaultvalue": {"DefaultValue"},
}

// classAliases maps v13 class names to the v20 class that replaced them.
var classAliases = map[string]string{
	"VoiceChatEnded":               "VideoChatEnded",
	"VoiceChatParticipantsInvited": "VideoChatParticipantsInvited",
	"VoiceChatScheduled":           "VideoChatScheduled",
	"VoiceChatStarted":             "VideoChatStarted",
}

// Registry resolves telegram class names to their v20 location. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	byName   map[string]ClassInfo
	byGlobal map[pickle.Global]ClassInfo
	aliases  map[string]string
}

// NewRegistry builds a registry of the v20 public classes.
func NewRegistry() *Registry {
	r := &Registry{
		byName:   make(map[string]ClassInfo),
		byGlobal: make(map[pickle.Global]ClassInfo),
		aliases:  classAliases,
	}
	r.add(v20Modules, KindDomain)
	r.add(v20Helpers, KindHelper)
	return r
}

func (r *Registry) add(modules map[string][]string, kind ClassKind) {
	for module, names := range modules {
		for _, name := range names {
			info := ClassInfo{Name: name, Module: module, Kind: kind}
			r.byName[name] = info
			r.byGlobal[info.Global()] = info
		}
	}
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// DefaultRegistry returns the shared registry.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Resolve finds the v20 class for a class name found in a v13 or v20
// stream. The module the name was found in is not consulted.
func (r *Registry) Resolve(name string) (ClassInfo, bool) {
	if alias, ok := r.aliases[name]; ok {
		name = alias
	}
	info, ok := r.byName[name]
	return info, ok
}

// Lookup returns the class registered under exactly g.
func (r *Registry) Lookup(g pickle.Global) (ClassInfo, bool) {
	info, ok := r.byGlobal[g]
	return info, ok
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.byName)
}

// Names returns the registered class names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTelegramModule reports whether module belongs to python-telegram-bot.
func IsTelegramModule(module string) bool {
	return module == "telegram" || strings.HasPrefix(module, "telegram.")
}

func typeName(v pickle.Value) string {
	switch x := v.(type) {
	case nil, pickle.None:
		return "None"
	case *pickle.Dict:
		return "dict"
	case *pickle.List:
		return "list"
	case pickle.Tuple:
		return fmt.Sprintf("tuple of %d", len(x))
	case *pickle.Object:
		if g, ok := x.ClassGlobal(); ok {
			return g.String() + " instance"
		}
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
