// vidup uploads a single video file through the API, the same way the
// app does it.
package main

import (
	"bitwise74/reel-api/pkg/uploader"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	server     = pflag.StringP("server", "s", "http://localhost:8080", "API base URL")
	token      = pflag.StringP("token", "t", os.Getenv("VIDUP_TOKEN"), "Bearer token, defaults to $VIDUP_TOKEN")
	jwtSecret  = pflag.String("jwt-secret", "", "Mint a token locally with this HS256 secret instead of passing --token")
	userID     = pflag.String("user", "", "user_id claim used with --jwt-secret")
	caption    = pflag.StringP("caption", "c", "", "Video caption")
	tags       = pflag.StringSlice("tags", nil, "Comma separated tags")
	visibility = pflag.String("visibility", "public", "public, friends or private")
	noComments = pflag.Bool("no-comments", false, "Disable comments")
	noDuet     = pflag.Bool("no-duet", false, "Disallow duets")
	noStitch   = pflag.Bool("no-stitch", false, "Disallow stitches")
	parent     = pflag.String("parent", "", "Parent video id for a duet or stitch")
	parentKind = pflag.String("parent-kind", "", "duet or stitch")
	origin     = pflag.String("cors-origin", "", "Origin sent with the upload request")
	verbose    = pflag.BoolP("verbose", "v", false, "Debug logging")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vidup [flags] FILE\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	bearer, err := resolveToken()
	if err != nil {
		zap.L().Fatal("Failed to get a token", zap.Error(err))
	}

	file, err := uploader.LocalFile(pflag.Arg(0))
	if err != nil {
		zap.L().Fatal("Can't open file", zap.Error(err))
	}

	m := uploader.New(uploader.Options{
		Gateway:    uploader.NewHTTPGateway(*server),
		Transport:  &uploader.HTTPTransport{},
		Token:      func() string { return bearer },
		CORSOrigin: *origin,
		OnChange:   printState,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		m.CancelUpload()
	}()

	videoID, err := m.UploadVideo(ctx, file, metadata())
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if errors.Is(err, uploader.ErrCancelled) {
			zap.L().Warn("Upload cancelled")
			os.Exit(130)
		}

		zap.L().Fatal("Upload failed", zap.Error(err))
	}

	fmt.Println(videoID)
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return l
}

func resolveToken() (string, error) {
	if *token != "" {
		return *token, nil
	}

	if *jwtSecret == "" {
		return "", errors.New("pass --token, set VIDUP_TOKEN or use --jwt-secret with --user")
	}

	if *userID == "" {
		return "", errors.New("--user is required with --jwt-secret")
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": *userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	})

	return t.SignedString([]byte(*jwtSecret))
}

func metadata() uploader.Metadata {
	allow := func(disabled bool) *bool {
		v := !disabled
		return &v
	}

	return uploader.Metadata{
		Caption:       *caption,
		Tags:          *tags,
		Visibility:    *visibility,
		AllowComments: allow(*noComments),
		AllowDuet:     allow(*noDuet),
		AllowStitch:   allow(*noStitch),
		ParentVideoID: *parent,
		ParentKind:    *parentKind,
	}
}

func printState(s uploader.UploadState) {
	const width = 30

	filled := s.Progress * width / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)

	fmt.Fprintf(os.Stderr, "\r[%s] %3d%% %-16s", bar, s.Progress, s.Status)
}
