package main

import (
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"

	"github.com/dbytex91/debridx/internal/addon"
	"github.com/dbytex91/debridx/internal/cache"
	"github.com/dbytex91/debridx/internal/moch"
	"github.com/dbytex91/debridx/internal/moch/alldebrid"
	"github.com/dbytex91/debridx/internal/moch/debridlink"
	"github.com/dbytex91/debridx/internal/moch/premiumize"
	"github.com/dbytex91/debridx/internal/moch/realdebrid"
	"github.com/dbytex91/debridx/internal/static"
)

type config struct {
	ProwlarrURL    string `env:"PROWLARR_URL"`
	ProwlarrAPIKey string `env:"PROWLARR_API_KEY"`

	ResolvedCacheMB         int `env:"RESOLVED_CACHE_MB" envDefault:"64"`
	ResolvedCacheTTLSeconds int `env:"RESOLVED_CACHE_TTL_SECONDS" envDefault:"3600"`
}

var (
	maskedPathPattern = regexp.MustCompile(`^/([\w%]+)/(?:configure|stream|resolve|catalog|meta|manifest)`)
	resolveKeyPattern = regexp.MustCompile(`^/resolve/\w+/([^/]+)`)
	version           = "1.0.0"
)

// maskPath hides credential-bearing path segments before they reach the
// access log: the userData segment ahead of a route keyword and the apiKey
// segment of resolve URLs.
func maskPath(urlPath string) string {
	for _, pattern := range []*regexp.Regexp{resolveKeyPattern, maskedPathPattern} {
		if loc := pattern.FindStringSubmatchIndex(urlPath); len(loc) > 3 {
			return urlPath[:loc[2]] + "***" + urlPath[loc[3]:]
		}
	}
	return urlPath
}

func main() {
	cfg := config{}
	_ = env.Parse(&cfg)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(logger.New(logger.Config{
		CustomTags: map[string]logger.LogFunc{
			"maskedPath": func(output logger.Buffer, c *fiber.Ctx, data *logger.Data, extraParam string) (int, error) {
				return output.WriteString(maskPath(c.Path()))
			},
		},
		Format:        "${time} | ${status} | ${latency} | ${ip} | ${method} | ${maskedPath} | ${error}\n",
		TimeFormat:    "15:04:05",
		TimeZone:      "Local",
		TimeInterval:  500 * time.Millisecond,
		Output:        os.Stdout,
		DisableColors: false,
	}))

	registry := moch.NewRegistry(
		realdebrid.Descriptor(),
		premiumize.Descriptor(),
		alldebrid.Descriptor(),
		debridlink.Descriptor(),
	)
	urlCache := cache.New(cfg.ResolvedCacheMB*1024*1024, cfg.ResolvedCacheTTLSeconds)
	engine := moch.NewEngine(registry, moch.NewCredentialGuard(), urlCache)

	opts := []addon.Option{
		addon.WithID("com.debridx.addon"),
		addon.WithName("DebridX"),
		addon.WithVersion(version),
	}

	if cfg.ProwlarrURL != "" && cfg.ProwlarrAPIKey != "" {
		opts = append(opts, addon.WithProwlarr(cfg.ProwlarrURL, cfg.ProwlarrAPIKey))
	}

	add := addon.New(engine, opts...)

	app.Get("/manifest.json", add.HandleGetManifest)
	app.Get("/:userData/manifest.json", add.HandleGetManifest)
	app.Get("/stream/:type/:id.json", add.HandleGetStreams)
	app.Get("/:userData/stream/:type/:id.json", add.HandleGetStreams)
	app.Get("/resolve/:moch/:apiKey/:infoHash", add.HandleResolve)
	app.Get("/resolve/:moch/:apiKey/:infoHash/:fileIdx", add.HandleResolve)
	app.Head("/resolve/:moch/:apiKey/:infoHash", add.HandleResolve)
	app.Head("/resolve/:moch/:apiKey/:infoHash/:fileIdx", add.HandleResolve)
	app.Get("/:userData/catalog/other/:id.json", add.HandleGetCatalog)
	app.Get("/:userData/catalog/other/:id/:extra.json", add.HandleGetCatalog)
	app.Get("/:userData/meta/other/:id.json", add.HandleGetMeta)
	app.Get("/configure", static.HandleConfigure)
	app.Get("/:userData/configure", static.HandleConfigure)
	app.Static("/videos", "./assets/videos")

	log.Infof("Starting HTTP server on :7000")
	log.Fatal(app.Listen(":7000"))
}
