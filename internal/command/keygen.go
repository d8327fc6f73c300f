package command

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gourdian25/ecwt"
)

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a random encryption key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Key encoding: hex, base64",
				Value: "hex",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the key to this file (mode 0600) instead of stdout",
			},
		},
		Action: keygenAction,
	}
}

func keygenAction(c *cli.Context) error {
	key, err := ecwt.GenerateKey()
	if err != nil {
		return err
	}

	var text string
	switch c.String("format") {
	case "hex":
		text = hex.EncodeToString(key)
	case "base64":
		text = base64.StdEncoding.EncodeToString(key)
	default:
		return cli.Exit(fmt.Sprintf("unsupported key format: %s", c.String("format")), 1)
	}

	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, []byte(text+"\n"), 0600); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}
		return nil
	}

	fmt.Fprintln(c.App.Writer, text)
	return nil
}
