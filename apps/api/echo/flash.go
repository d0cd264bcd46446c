package echoapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	flashCookie = "messages"
	flashCtxKey = "flashes"

	flashSuccess = "success"
	flashError   = "error"
)

// flash is a one-shot message shown on the next rendered page.
type flash struct {
	Level string `json:"l"`
	Text  string `json:"t"`
}

// pendingFlashes returns the messages not shown yet.
func pendingFlashes(ctx echo.Context) []flash {
	if msgs, ok := ctx.Get(flashCtxKey).([]flash); ok {
		return msgs
	}

	var msgs []flash
	if cookie, err := ctx.Cookie(flashCookie); err == nil && cookie.Value != "" {
		if data, err := base64.RawURLEncoding.DecodeString(cookie.Value); err == nil {
			_ = json.Unmarshal(data, &msgs) // a tampered cookie only loses its messages
		}
	}
	ctx.Set(flashCtxKey, msgs)
	return msgs
}

func addFlash(ctx echo.Context, level, text string) {
	msgs := append(pendingFlashes(ctx), flash{Level: level, Text: text})
	ctx.Set(flashCtxKey, msgs)

	data, _ := json.Marshal(msgs)
	ctx.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the pending messages and forgets them.
func popFlashes(ctx echo.Context) []flash {
	msgs := pendingFlashes(ctx)
	ctx.Set(flashCtxKey, []flash{})
	if _, err := ctx.Cookie(flashCookie); err == nil || len(msgs) > 0 {
		ctx.SetCookie(&http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	}
	return msgs
}

// redirectWithFlash adds a message and redirects to url.
func redirectWithFlash(ctx echo.Context, url, level, text string) error {
	addFlash(ctx, level, text)
	return ctx.Redirect(http.StatusFound, url)
}
