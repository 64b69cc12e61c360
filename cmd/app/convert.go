package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/client"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/filetype"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/web"
)

func convertCmd() *cobra.Command {
	var (
		kind         string
		token        string
		relayURL     string
		out          string
		settingsPath string
	)
	cmd := &cobra.Command{
		Use:   "convert [flags] IMAGE",
		Short: "Convert an image through the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := contract.ParseKind(kind)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(data) > web.MaxClientUpload {
				return fmt.Errorf("file size exceeds %dMB limit", web.MaxClientUpload>>20)
			}
			if info := filetype.Detect(data, args[0]); !info.Supported {
				return fmt.Errorf("unsupported file type: %s", info.MIMEType)
			}

			if settingsPath == "" {
				if settingsPath, err = client.DefaultSettingsPath(); err != nil {
					return err
				}
			}
			settings := client.NewSettingsStore(settingsPath)
			if _, err := settings.Load(); err != nil {
				return err
			}

			sess := client.NewSession(client.New(client.Options{BaseURL: relayURL, Token: token}), settings)
			res, err := sess.Submit(cmd.Context(), k, filepath.Base(args[0]), data)
			if errors.Is(err, client.ErrNoCredits) {
				return errors.New("you have no credits left")
			}
			if err != nil && res.Kind == "" {
				return err
			}
			if werr := writeResult(cmd.OutOrStdout(), res, out); werr != nil {
				return werr
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "credits left: %d\n", settings.Current().Credits)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&kind, "kind", "k", "text", "conversion type: text, excel, search or json")
	f.StringVar(&token, "token", os.Getenv("IMAGEAI_TOKEN"), "bearer token for the relay")
	f.StringVar(&relayURL, "relay", envOr("IMAGEAI_RELAY_URL", "http://localhost:8080"), "relay base URL")
	f.StringVarP(&out, "out", "o", "", "write the result to this file")
	f.StringVar(&settingsPath, "settings", "", "settings file (default under the user config dir)")
	return cmd
}

func writeResult(stdout io.Writer, res client.Result, out string) error {
	var payload []byte
	switch res.Kind {
	case contract.KindText:
		payload = []byte(res.Text)
		if len(payload) > 0 && payload[len(payload)-1] != '\n' {
			payload = append(payload, '\n')
		}
	case contract.KindExcel:
		payload = res.Workbook
		if out == "" {
			out = contract.XLSXFilename
		}
	default:
		var b bytes.Buffer
		if err := json.Indent(&b, res.JSON, "", "  "); err != nil {
			return err
		}
		b.WriteByte('\n')
		payload = b.Bytes()
	}
	if out == "" {
		_, err := stdout.Write(payload)
		return err
	}
	return os.WriteFile(out, payload, 0o644)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
