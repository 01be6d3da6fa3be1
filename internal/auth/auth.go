package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoActor возвращается, если шлюз не передал пользователя
var ErrNoActor = errors.New("no authenticated user in request")

// Аутентификация выполняется шлюзом перед сервисом: он передает
// идентификатор пользователя в заголовке.
var actorHeader = defaultActorHeader

func Init(cfg *Config) {
	if cfg != nil && cfg.ActorHeader != "" {
		actorHeader = cfg.ActorHeader
	}
}

// ActorFromRequest возвращает идентификатор пользователя, выполняющего запрос
func ActorFromRequest(r *http.Request) (string, error) {
	actor := strings.TrimSpace(r.Header.Get(actorHeader))
	if actor == "" {
		return "", ErrNoActor
	}
	return actor, nil
}
