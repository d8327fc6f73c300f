package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gourdian25/ecwt"
)

func issueCommand(s *state) *cli.Command {
	return &cli.Command{
		Name:  "issue",
		Usage: "Create a token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "Payload as a JSON object",
			},
			&cli.StringSliceFlag{
				Name:  "field",
				Usage: "Payload field as name=value, repeatable; overrides --data",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime in whole seconds, e.g. 1h; omit for a token that never expires",
			},
		},
		Action: func(c *cli.Context) error {
			data, err := parsePayload(c.String("data"), c.StringSlice("field"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			factory, closeFn, err := s.openFactory()
			if err != nil {
				return err
			}
			defer closeFn()

			var opts []ecwt.CreateOption
			if c.IsSet("ttl") {
				opts = append(opts, ecwt.WithTTL(c.Duration("ttl")))
			}

			token, err := factory.Create(c.Context, data, opts...)
			if err != nil {
				return err
			}

			s.logger.Info("token issued", "token_id", token.ID())
			fmt.Fprintln(c.App.Writer, token.String())
			return nil
		},
	}
}

func verifyCommand(s *state) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify a token and print its contents as JSON",
		ArgsUsage: "TOKEN",
		Action: func(c *cli.Context) error {
			raw, err := tokenArg(c)
			if err != nil {
				return err
			}

			factory, closeFn, err := s.openFactory()
			if err != nil {
				return err
			}
			defer closeFn()

			token, err := factory.Verify(c.Context, raw)
			var invalid *ecwt.InvalidError
			switch {
			case err == nil:
				return writeJSON(c, describe(token, nil))
			case errors.As(err, &invalid):
				if werr := writeJSON(c, describe(invalid.Token, invalid.Reason)); werr != nil {
					return werr
				}
				return cli.Exit(err.Error(), 2)
			default:
				return err
			}
		},
	}
}

func revokeCommand(s *state) *cli.Command {
	return &cli.Command{
		Name:      "revoke",
		Usage:     "Revoke a token until it expires",
		ArgsUsage: "TOKEN",
		Action: func(c *cli.Context) error {
			raw, err := tokenArg(c)
			if err != nil {
				return err
			}
			if err := s.requireRedis(); err != nil {
				return err
			}

			factory, closeFn, err := s.openFactory()
			if err != nil {
				return err
			}
			defer closeFn()

			token, err := factory.Verify(c.Context, raw)
			var invalid *ecwt.InvalidError
			switch {
			case err == nil:
			case errors.As(err, &invalid) && errors.Is(err, ecwt.ErrRevoked):
				fmt.Fprintf(c.App.Writer, "token %s is already revoked\n", invalid.Token.ID())
				return nil
			case errors.As(err, &invalid):
				token = invalid.Token
			default:
				return err
			}

			if err := token.Revoke(c.Context); err != nil {
				return err
			}
			s.logger.Info("token revoked", "token_id", token.ID())
			fmt.Fprintf(c.App.Writer, "token %s revoked\n", token.ID())
			return nil
		},
	}
}

func pruneCommand(s *state) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Remove revocation entries of expired tokens",
		Action: func(c *cli.Context) error {
			if err := s.requireRedis(); err != nil {
				return err
			}

			factory, closeFn, err := s.openFactory()
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := factory.PruneRevocations(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d revocation entries removed\n", removed)
			return nil
		},
	}
}

func tokenArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("exactly one TOKEN argument is required", 1)
	}
	return strings.TrimSpace(c.Args().First()), nil
}

// parsePayload merges a JSON object with name=value fields. JSON numbers
// that are integers are kept as int64.
func parsePayload(data string, fields []string) (map[string]any, error) {
	payload := make(map[string]any)

	if data != "" {
		dec := json.NewDecoder(bytes.NewBufferString(data))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
		for name, value := range payload {
			payload[name] = normalizeJSON(value)
		}
	}

	for _, field := range fields {
		name, value, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, expected name=value", field)
		}
		payload[name] = value
	}

	return payload, nil
}

func normalizeJSON(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = normalizeJSON(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = normalizeJSON(v[k])
		}
		return v
	default:
		return value
	}
}

// tokenView is the JSON rendering of a token.
type tokenView struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt *time.Time     `json:"expires_at"`
	TTL       *int64         `json:"ttl"`
	Valid     bool           `json:"valid"`
	Reason    string         `json:"reason,omitempty"`
	Data      map[string]any `json:"data"`
}

func describe(token *ecwt.Token, reason error) tokenView {
	view := tokenView{
		ID:        token.ID(),
		CreatedAt: token.CreatedAt().UTC(),
		Valid:     reason == nil,
		Data:      token.Data().Map(),
	}
	if reason != nil {
		view.Reason = reason.Error()
	}
	if expiresAt, ok := token.ExpiresAt(); ok {
		t := time.Unix(expiresAt, 0).UTC()
		view.ExpiresAt = &t
	}
	if ttl, ok := token.TTL(); ok {
		view.TTL = &ttl
	}
	return view
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
