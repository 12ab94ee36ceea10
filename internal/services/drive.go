package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/logger"
)

var ErrDriveNotAuthorized = errors.New("google drive token missing, run `talentscan drive-auth` first")

// DriveFile is a résumé candidate found in a Drive folder.
type DriveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

type DriveImporter interface {
	ListResumes(ctx context.Context, folderID string) ([]DriveFile, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type driveImporter struct {
	service *drive.Service
	log     *zap.Logger
}

// NewDriveImporter builds a Drive client from the cached OAuth token; it never starts an interactive flow.
func NewDriveImporter(ctx context.Context, cfg config.DriveConfig, log *zap.Logger) (DriveImporter, error) {
	oauthCfg, err := DriveOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := TokenFromFile(cfg.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrDriveNotAuthorized
		}
		return nil, fmt.Errorf("unable to read drive token: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}

	return &driveImporter{service: srv, log: logger.Component(log, "drive")}, nil
}

func DriveOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return oauthCfg, nil
}

func (d *driveImporter) ListResumes(ctx context.Context, folderID string) ([]DriveFile, error) {
	var files []DriveFile
	pageToken := ""

	for {
		call := d.service.Files.List().
			Q(driveFolderQuery(folderID)).
			Fields("nextPageToken, files(id, name, mimeType)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		r, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list drive folder: %w", err)
		}

		for _, f := range r.Files {
			if _, err := MimeTypeFor(f.Name); err != nil {
				d.log.Debug("skipping unsupported drive file", zap.String("name", f.Name), zap.String("mime_type", f.MimeType))
				continue
			}
			files = append(files, DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
		}

		if r.NextPageToken == "" {
			break
		}
		pageToken = r.NextPageToken
	}

	d.log.Info("drive folder listed", zap.String("folder_id", folderID), zap.Int("files", len(files)))
	return files, nil
}

func (d *driveImporter) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read drive file %s: %w", fileID, err)
	}
	return data, nil
}

func driveFolderQuery(folderID string) string {
	escaped := strings.ReplaceAll(folderID, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}

// DriveAuthURL is the consent page the operator opens to obtain an authorization code.
func DriveAuthURL(oauthCfg *oauth2.Config) string {
	return oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// ExchangeDriveCode trades an authorization code for a token and caches it.
func ExchangeDriveCode(ctx context.Context, oauthCfg *oauth2.Config, code, tokenFile string) error {
	tok, err := oauthCfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return SaveToken(tokenFile, tok)
}

func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}
	return tok, nil
}

func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode oauth token: %w", err)
	}
	return nil
}
