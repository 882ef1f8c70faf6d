package dispatch

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/roles"
)

func groupMessage(text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 10,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup"},
			From:      &tgbotapi.User{ID: 7},
		},
	}
}

func TestFirstFullMatchWins(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil)
	var ran []string
	record := func(name string) Handler {
		return func(context.Context, *tgbotapi.Update) { ran = append(ran, name) }
	}
	always := func(context.Context, *tgbotapi.Update) bool { return true }
	never := func(context.Context, *tgbotapi.Update) bool { return false }

	registry.Register(record("first"), always, never)
	registry.Register(record("second"), always, always)
	registry.Register(record("third"), always)

	if !registry.Dispatch(context.Background(), groupMessage("hi")) {
		t.Fatal("expected a handler to run")
	}
	if len(ran) != 1 || ran[0] != "second" {
		t.Fatalf("expected only the second registration to run, got %v", ran)
	}
}

func TestDispatchDeterministic(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil)
	var picks []string
	for _, name := range []string{"a", "b"} {
		name := name
		registry.Register(func(context.Context, *tgbotapi.Update) { picks = append(picks, name) },
			OnCommand("/show"))
	}

	update := groupMessage("/show 42")
	for i := 0; i < 5; i++ {
		registry.Dispatch(context.Background(), update)
	}
	for _, pick := range picks {
		if pick != "a" {
			t.Fatalf("dispatch picked %q, want registration order to decide", pick)
		}
	}
}

func TestUnmatchedIsIgnored(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil)
	registry.Register(func(context.Context, *tgbotapi.Update) {
		t.Fatal("handler must not run")
	}, OnCommand("/done"))

	if registry.Dispatch(context.Background(), groupMessage("plain text")) {
		t.Fatal("expected no match")
	}
}

func TestShortCircuitStopsEvaluation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil)
	evaluated := false
	registry.Register(func(context.Context, *tgbotapi.Update) {},
		func(context.Context, *tgbotapi.Update) bool { return false },
		func(context.Context, *tgbotapi.Update) bool { evaluated = true; return true },
	)

	registry.Dispatch(context.Background(), groupMessage("hi"))
	if evaluated {
		t.Fatal("second condition must not be evaluated after the first fails")
	}
}

func TestOnCommand(t *testing.T) {
	t.Parallel()

	cond := OnCommand("/done")
	cases := map[string]bool{
		"/done":           true,
		"/done@shelfbot":  true,
		"/done extra":     true,
		"/sdone":          false,
		"/doner":          false,
		"done":            false,
		"":                false,
		"say /done":       false,
	}
	for text, want := range cases {
		if got := cond(context.Background(), groupMessage(text)); got != want {
			t.Errorf("OnCommand(/done) on %q = %v, want %v", text, got, want)
		}
	}
}

func TestOnReplyToCommand(t *testing.T) {
	t.Parallel()

	cond := OnReplyToCommand("/done")

	update := groupMessage("/done great book")
	if cond(context.Background(), update) {
		t.Error("command without a reply target should not match")
	}

	update.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 5}
	if !cond(context.Background(), update) {
		t.Error("command replying to a message should match")
	}

	other := groupMessage("/sdone")
	other.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 5}
	if cond(context.Background(), other) {
		t.Error("a different command should not match")
	}
}

func TestOnChatTypes(t *testing.T) {
	t.Parallel()

	cond := OnChatTypes("group", "supergroup")
	if !cond(context.Background(), groupMessage("hi")) {
		t.Fatal("supergroup should match")
	}

	private := groupMessage("hi")
	private.Message.Chat.Type = "private"
	if cond(context.Background(), private) {
		t.Fatal("private should not match")
	}
}

func TestOnRole(t *testing.T) {
	t.Parallel()

	resolver := roles.Static{7: models.RoleContributor}
	update := groupMessage("/done")

	if !OnRole(resolver, models.RoleContributor)(context.Background(), update) {
		t.Fatal("contributor should pass contributor gate")
	}
	if OnRole(resolver, models.RoleAdmin)(context.Background(), update) {
		t.Fatal("contributor should not pass admin gate")
	}

	update.Message.From.ID = 8
	if OnRole(resolver, models.RoleContributor)(context.Background(), update) {
		t.Fatal("unknown user should be plain USER")
	}
}

func TestOnCallbackMatchModes(t *testing.T) {
	t.Parallel()

	callback := &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		Data:    "confirm message=1 group=2 action=DONE",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -100, Type: "supergroup"}},
	}}

	if !OnCallback("confirm ", MatchStartsWith)(context.Background(), callback) {
		t.Fatal("starts-with should match")
	}
	if !OnCallback(`^confirm message=[0-9]+ group=[+-]?[0-9]+ action=[A-Z]+$`, MatchRegexp)(context.Background(), callback) {
		t.Fatal("regexp should match")
	}
	if OnCallback("confirm", MatchEquals)(context.Background(), callback) {
		t.Fatal("equals should not match a longer payload")
	}
	if OnCallback("confirm ", MatchStartsWith)(context.Background(), groupMessage("confirm zzz")) {
		t.Fatal("message updates are not callbacks")
	}
}

func TestOnReplyWithValidFile(t *testing.T) {
	t.Parallel()

	update := groupMessage("")
	update.Message.ReplyToMessage = &tgbotapi.Message{MessageID: 3}

	cond := OnReplyWithValidFile()
	if cond(context.Background(), update) {
		t.Fatal("no attachment should not match")
	}

	update.Message.Document = &tgbotapi.Document{MimeType: "application/epub+zip", FileName: "book.bin"}
	if !cond(context.Background(), update) {
		t.Fatal("allow-listed MIME should match")
	}

	update.Message.Document = &tgbotapi.Document{MimeType: "text/html", FileName: "book.epub"}
	if !cond(context.Background(), update) {
		t.Fatal("allow-listed extension should match")
	}

	update.Message.Document = &tgbotapi.Document{MimeType: "text/html", FileName: "book.html"}
	if cond(context.Background(), update) {
		t.Fatal("disallowed MIME and extension should not match")
	}

	update.Message.Document = nil
	update.Message.Audio = &tgbotapi.Audio{MimeType: "", FileName: "chapter1.m4b"}
	if !cond(context.Background(), update) {
		t.Fatal("audio with allow-listed extension should match")
	}

	update.Message.ReplyToMessage = nil
	if cond(context.Background(), update) {
		t.Fatal("non-reply should not match")
	}
}
