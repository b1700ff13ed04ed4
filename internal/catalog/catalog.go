// Package catalog looks up species and move data from the public
// PokeAPI REST service and caches it in memory. It is a read-only
// collaborator of the battle core: teams built by clients are made of
// catalog entries copied into battle-scoped Pokemon.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/needahmed/pokemon-pvp-game/internal/game"
)

var titler = cases.Title(language.English)

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	pokemon map[string]*game.Pokemon
	moves   map[string]*game.Move
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 20 * time.Second},
		pokemon: make(map[string]*game.Pokemon),
		moves:   make(map[string]*game.Move),
	}
}

// Pokemon fetches a species by name or numeric id. Moves are not
// populated; clients pick those separately via Move.
func (c *Client) Pokemon(ctx context.Context, name string) (*game.Pokemon, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.RLock()
	p, ok := c.pokemon[key]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	var raw apiPokemon
	if err := c.fetch(ctx, "/pokemon/"+url.PathEscape(key), &raw); err != nil {
		return nil, err
	}
	p = raw.toPokemon()

	c.mu.Lock()
	c.pokemon[key] = p
	c.mu.Unlock()
	return p, nil
}

// Move fetches a move by name.
func (c *Client) Move(ctx context.Context, name string) (*game.Move, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.RLock()
	m, ok := c.moves[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	var raw apiMove
	if err := c.fetch(ctx, "/move/"+url.PathEscape(key), &raw); err != nil {
		return nil, err
	}
	m = raw.toMove()

	c.mu.Lock()
	c.moves[key] = m
	c.mu.Unlock()
	return m, nil
}

func (c *Client) fetch(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pokeapi request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pokeapi returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// DisplayName turns an API slug like "mr-mime" into "Mr Mime".
func DisplayName(slug string) string {
	return titler.String(strings.ReplaceAll(slug, "-", " "))
}

type apiPokemon struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
	} `json:"sprites"`
}

func (a apiPokemon) toPokemon() *game.Pokemon {
	p := &game.Pokemon{
		ID:     a.ID,
		Name:   DisplayName(a.Name),
		Sprite: a.Sprites.FrontDefault,
	}
	for _, t := range a.Types {
		p.Types = append(p.Types, t.Type.Name)
	}
	for _, s := range a.Stats {
		switch s.Stat.Name {
		case "hp":
			p.Stats.HP = s.BaseStat
		case "attack":
			p.Stats.Attack = s.BaseStat
		case "defense":
			p.Stats.Defense = s.BaseStat
		case "special-attack":
			p.Stats.SpecialAttack = s.BaseStat
		case "special-defense":
			p.Stats.SpecialDefense = s.BaseStat
		case "speed":
			p.Stats.Speed = s.BaseStat
		}
	}
	return p
}

type apiMove struct {
	Name     string `json:"name"`
	Power    *int   `json:"power"`
	Accuracy *int   `json:"accuracy"`
	Type     struct {
		Name string `json:"name"`
	} `json:"type"`
	DamageClass struct {
		Name string `json:"name"`
	} `json:"damage_class"`
}

func (a apiMove) toMove() *game.Move {
	m := &game.Move{
		Name:        DisplayName(a.Name),
		Type:        a.Type.Name,
		Power:       a.Power,
		Accuracy:    100,
		DamageClass: game.DamageClass(a.DamageClass.Name),
	}
	if a.Accuracy != nil {
		m.Accuracy = *a.Accuracy
	}
	return m
}
