package addon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adrg/strutil/metrics"
	"github.com/coocood/freecache"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/dbytex91/debridx/internal/cinemeta"
	"github.com/dbytex91/debridx/internal/moch"
	"github.com/dbytex91/debridx/internal/model"
	"github.com/dbytex91/debridx/internal/pipe"
	"github.com/dbytex91/debridx/internal/prowlarr"
	"github.com/dbytex91/debridx/internal/titleparser"
)

const (
	cacheSize           = 50 * 1024 * 1024 // 50MB
	maxTitleDistance    = 5
	maxStreamsResult    = 10
	infoHashCacheExpiry = 24 * 60 * 60 // 1 day

	catalogIDPrefix = "debridx-"
)

var (
	nonWordCharacter = regexp.MustCompile(`[^a-zA-Z0-9]+`)

	resolutionName = map[int]string{
		2160: "4K",
		1080: "1080p",
		720:  "720p",
		480:  "480p",
		360:  "360p",
		0:    "Unknown",
	}

	avoidQualities = []string{
		"cam", "camrip", "telesync", "tsrip", "hdcam", "tc", "ppvrip", "r5", "vhsscr",
	}
)

// Addon wires the candidate pipeline and the moch engine into Stremio
// endpoints.
type Addon struct {
	id          string
	name        string
	version     string
	description string

	engine         *moch.Engine
	cinemetaClient *cinemeta.CineMeta
	prowlarrClient *prowlarr.Prowlarr
	prowlarrURL    string
	prowlarrAPIKey string
	cache          *freecache.Cache
}

type Option func(*Addon)

type streamRecord struct {
	ContentType   ContentType
	ID            string
	Season        int
	Episode       int
	BaseURL       string
	RemoteAddress string
	MetaInfo      *model.MetaInfo
	TitleInfo     *titleparser.MetaInfo
	Indexer       *prowlarr.Indexer
	Torrent       *prowlarr.Torrent
	Prowlarr      *prowlarr.Prowlarr
	UserData      *UserData
}

func New(engine *moch.Engine, opts ...Option) *Addon {
	addon := &Addon{
		description:    "Torrent streaming addon aggregating debrid providers",
		engine:         engine,
		cinemetaClient: cinemeta.New(),
		cache:          freecache.NewCache(cacheSize),
	}

	for _, opt := range opts {
		opt(addon)
	}

	if addon.prowlarrClient == nil {
		log.Warn("No Prowlarr configured via environment variables. Users must configure via UI.")
	}

	return addon
}

func (add *Addon) HandleGetManifest(c *fiber.Ctx) error {
	userDataRaw := c.Params("userData")

	var userData *UserData
	var configRequired bool

	if userDataRaw == "" {
		configRequired = add.prowlarrClient == nil
	} else {
		var err error
		userData, err = parseUserData(add, c)
		configRequired = err != nil
	}

	catalogs := []CatalogItem{}
	if userData != nil {
		for _, descriptor := range add.engine.ConfiguredCatalogs(userData.MochKeys()) {
			catalogs = append(catalogs, CatalogItem{
				Type: ContentTypeOther,
				ID:   catalogIDPrefix + descriptor.Key,
				Name: descriptor.Name,
				Extra: []ExtraItem{
					{Name: "skip"},
				},
			})
		}
	}

	resources := []ResourceItem{
		{
			Name:       ResourceStream,
			Types:      []ContentType{ContentTypeMovie, ContentTypeSeries},
			IDPrefixes: []string{"tt"},
		},
	}
	if len(catalogs) > 0 {
		resources = append(resources,
			ResourceItem{
				Name:  ResourceCatalog,
				Types: []ContentType{ContentTypeOther},
			},
			ResourceItem{
				Name:       ResourceMeta,
				Types:      []ContentType{ContentTypeOther},
				IDPrefixes: providerIDPrefixes(add.engine),
			})
	}

	manifest := &Manifest{
		ID:            add.id,
		Name:          add.name,
		Description:   add.description,
		Version:       add.version,
		ResourceItems: resources,
		Types:         []ContentType{ContentTypeMovie, ContentTypeSeries, ContentTypeOther},
		Catalogs:      catalogs,
		IDPrefixes:    []string{"tt"},
		BehaviorHints: &BehaviorHints{
			Configurable:          true,
			ConfigurationRequired: configRequired,
		},
	}

	return c.JSON(manifest)
}

func (add *Addon) HandleGetStreams(c *fiber.Ctx) error {
	userDataRaw := c.Params("userData")

	var userData *UserData
	var err error

	if userDataRaw == "" {
		if add.prowlarrClient == nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "Configuration required. Please configure the addon.",
			})
		}
		userData = NewUserDataWithDefaults()
	} else {
		userData, err = parseUserData(add, c)
		if err != nil {
			log.Errorf("Failed to parse user data: %v", err)
			return c.Status(400).JSON(fiber.Map{
				"error": "Invalid configuration data.",
			})
		}
	}

	p := pipe.New(add.sourceFromContextWithUserData(c, userData))

	p.Map(add.fetchMetaInfo)
	p.FanOut(add.fanOutToAllIndexers)
	p.Channel(add.searchForTorrents)
	p.Map(add.parseTorrentTitle)
	p.Filter(add.createExcludeTorrentsFilter())
	p.FanOut(add.enrichInfoHash, pipe.Concurrency[streamRecord](10))
	p.Filter(deduplicateTorrent())

	timeoutSeconds, err := strconv.Atoi(userData.SearchTimeout)
	if err != nil || timeoutSeconds < 10 || timeoutSeconds > 120 {
		timeoutSeconds = 45
	}

	records := add.sinkResultsWithTimeout(p, time.Duration(timeoutSeconds)*time.Second)

	if userData.SortMethod == "resolution" {
		records = groupByResolution(records, 3)
	} else {
		records = sortByQualityScore(records)
	}
	if len(records) > maxStreamsResult {
		records = records[:maxStreamsResult]
	}
	log.Infof("Pipeline completed - Processing %d total records", len(records))

	streams := make([]model.StreamItem, 0, len(records))
	for _, r := range records {
		streams = append(streams, streamItemFromRecord(r))
	}

	cfg := userData.MochConfig(c.BaseURL(), getIPAddress(c), 0)
	results := add.engine.ApplyProviders(streams, cfg)

	c.Response().Header.Add("Cache-control", "max-age=1800, public, stale-while-revalidate=604800, stale-if-error=604800")
	return c.JSON(GetStreamsResponse{
		Streams: results,
	})
}

// HandleResolve redirects to the provider-hosted download for one torrent
// file. Provider failures still redirect, to a sentinel video.
func (add *Addon) HandleResolve(c *fiber.Ctx) error {
	apiKey, err := url.PathUnescape(c.Params("apiKey"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid api key."})
	}

	fileIndex := -1
	if raw := c.Params("fileIdx"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			fileIndex = parsed
		}
	}

	resolved, err := add.engine.Resolve(moch.ResolveRequest{
		IP:          getIPAddress(c),
		ProviderKey: c.Params("moch"),
		APIKey:      apiKey,
		InfoHash:    strings.ToLower(c.Params("infoHash")),
		FileIndex:   fileIndex,
		Host:        c.BaseURL(),
	})
	if err != nil {
		log.Errorf("Rejected resolve request: %v", err)
		return c.Status(400).JSON(fiber.Map{"error": "Invalid resolve request."})
	}

	return c.Redirect(resolved)
}

func (add *Addon) HandleGetCatalog(c *fiber.Ctx) error {
	userData, err := parseUserData(add, c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid configuration data."})
	}

	providerKey := strings.TrimPrefix(c.Params("id"), catalogIDPrefix)
	skip := parseSkip(c.Params("extra"))

	cfg := userData.MochConfig(c.BaseURL(), getIPAddress(c), skip)
	metas, err := add.engine.GetCatalog(providerKey, cfg)
	if err != nil {
		log.Errorf("Failed to load %s catalog: %v", providerKey, err)
		return c.Status(404).JSON(fiber.Map{"error": "Catalog unavailable."})
	}

	return c.JSON(GetCatalogResponse{Metas: metas})
}

func (add *Addon) HandleGetMeta(c *fiber.Ctx) error {
	userData, err := parseUserData(add, c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid configuration data."})
	}

	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid meta id."})
	}

	providerKey, itemID, found := strings.Cut(id, ":")
	if !found {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid meta id."})
	}

	cfg := userData.MochConfig(c.BaseURL(), getIPAddress(c), 0)
	item, err := add.engine.GetItemMeta(providerKey, itemID, cfg)
	if err != nil {
		log.Errorf("Failed to load %s meta for %s: %v", providerKey, itemID, err)
		return c.Status(404).JSON(fiber.Map{"error": "Meta unavailable."})
	}

	return c.JSON(GetMetaResponse{Meta: item})
}

func (add *Addon) sourceFromContextWithUserData(c *fiber.Ctx, userData *UserData) func() ([]*streamRecord, error) {
	return func() ([]*streamRecord, error) {
		finalProwlarrURL := userData.ProwlarrURL
		finalProwlarrAPIKey := userData.ProwlarrAPIKey

		if finalProwlarrURL == "" && add.prowlarrURL != "" {
			finalProwlarrURL = add.prowlarrURL
		}
		if finalProwlarrAPIKey == "" && add.prowlarrAPIKey != "" {
			finalProwlarrAPIKey = add.prowlarrAPIKey
		}

		var prowlarrClient *prowlarr.Prowlarr
		if finalProwlarrURL != "" && finalProwlarrAPIKey != "" {
			prowlarrClient = prowlarr.New(finalProwlarrURL, finalProwlarrAPIKey)
		}
		if prowlarrClient == nil {
			return nil, errors.New("prowlarr is not configured")
		}

		id := c.Params("id")
		season := 0
		episode := 0
		contentType := ContentType(c.Params("type"))
		if contentType == ContentTypeSeries {
			tokens := strings.Split(id, "%3A")
			if len(tokens) != 3 {
				return nil, errors.New("invalid stremio id")
			}
			id = tokens[0]
			season, _ = strconv.Atoi(tokens[1])
			episode, _ = strconv.Atoi(tokens[2])
		}

		return []*streamRecord{{
			ContentType:   contentType,
			ID:            id,
			Season:        season,
			Episode:       episode,
			BaseURL:       c.BaseURL(),
			RemoteAddress: c.Context().RemoteIP().String(),
			Prowlarr:      prowlarrClient,
			UserData:      userData,
		}}, nil
	}
}

func (add *Addon) fetchMetaInfo(r *streamRecord) (*streamRecord, error) {
	switch r.ContentType {
	case ContentTypeMovie:
		resp, err := add.cinemetaClient.GetMovieById(r.ID)
		if err != nil {
			return r, err
		}

		r.MetaInfo = resp
		return r, nil
	case ContentTypeSeries:
		resp, err := add.cinemetaClient.GetSeriesById(r.ID)
		if err != nil {
			return r, err
		}

		r.MetaInfo = resp
		return r, nil
	default:
		return r, errors.New("not supported content type")
	}
}

func (add *Addon) fanOutToAllIndexers(r *streamRecord) ([]*streamRecord, error) {
	allIndexers, err := r.Prowlarr.GetAllIndexers()
	if err != nil {
		return nil, fmt.Errorf("couldn't load all indexers: %v", err)
	}

	records := make([]*streamRecord, 0, len(allIndexers))
	for _, indexer := range allIndexers {
		if !indexer.Enable {
			log.Infof("Skip %s as it's disabled", indexer.Name)
			continue
		}

		newR := *r
		newR.Indexer = indexer
		records = append(records, &newR)
	}

	return records, nil
}

func (add *Addon) searchForTorrents(r *streamRecord, stopCh <-chan struct{}, outCh chan<- *streamRecord) error {
	var torrents []*prowlarr.Torrent
	var err error
	totalRecords := 0

	isStopped := func() bool {
		select {
		case <-stopCh:
			return true
		default:
			return false
		}
	}

	sendAllRecords := func(torrents []*prowlarr.Torrent) {
		totalRecords += len(torrents)
		for _, torrent := range torrents {
			newRecord := *r
			newRecord.Torrent = torrent
			pipe.SendRecords([]*streamRecord{&newRecord}, outCh, stopCh)
			if isStopped() {
				return
			}
		}
	}

	switch r.ContentType {
	case ContentTypeMovie:
		torrents, err = r.Prowlarr.SearchMovieTorrents(r.Indexer, r.MetaInfo.Name)
		if err != nil {
			return nil
		}

		sendAllRecords(torrents)
	case ContentTypeSeries:
		torrents, err = r.Prowlarr.SearchSeriesTorrents(r.Indexer, r.MetaInfo.Name)
		if err != nil {
			return nil
		}

		sendAllRecords(torrents)
		if !isStopped() && len(torrents) == r.Indexer.Capabilities.LimitDefaults && r.Indexer.Capabilities.LimitDefaults > 0 {
			torrents, _ = r.Prowlarr.SearchSeasonTorrents(r.Indexer, r.MetaInfo.Name, r.Season)
			sendAllRecords(torrents)
		}
	}

	log.Infof("Completed search from %s - Found %d torrents", r.Indexer.Name, totalRecords)
	return nil
}

func (add *Addon) parseTorrentTitle(r *streamRecord) (*streamRecord, error) {
	r.TitleInfo = titleparser.Parse(r.Torrent.Title)
	return r, nil
}

func (add *Addon) enrichInfoHash(r *streamRecord) ([]*streamRecord, error) {
	var err error

	if r.Torrent.InfoHash == "" {
		infoHash, err := add.cache.Get(r.Torrent.GID)
		if err == nil {
			r.Torrent.InfoHash = string(infoHash)
		}
	}

	r.Torrent, err = r.Prowlarr.FetchInfoHash(r.Torrent)
	if err != nil {
		log.Errorf("Failed to fetch InfoHash for %s due to: %v", r.Torrent.Guid, err)
		return nil, nil
	}

	if r.Torrent.InfoHash == "" {
		log.Warnf("Unable to find InfoHash for %s", r.Torrent.Guid)
		return nil, nil
	}

	err = add.cache.Set(r.Torrent.GID, []byte(r.Torrent.InfoHash), infoHashCacheExpiry)
	if err != nil {
		log.Errorf("Failed to cache the InfoHash due to: %v", err)
		return nil, nil
	}

	return []*streamRecord{r}, nil
}

func deduplicateTorrent() func(r *streamRecord) bool {
	found := &sync.Map{}
	return func(r *streamRecord) bool {
		if r.Torrent.InfoHash == "" {
			log.Infof("Skipped %s due to empty hash", r.Torrent.Title)
			return false
		}

		if _, loaded := found.LoadOrStore(r.Torrent.InfoHash, struct{}{}); loaded {
			log.Infof("Skipped %s due to duplication of %s", r.Torrent.Title, r.Torrent.InfoHash)
			return false
		}

		return true
	}
}

func (add *Addon) sinkResultsWithTimeout(p *pipe.Pipe[streamRecord], timeout time.Duration) []*streamRecord {
	records := []*streamRecord{}
	err := p.SinkWithTimeout(func(r *streamRecord) error {
		records = append(records, r)
		return nil
	}, timeout)

	if err != nil {
		log.Errorf("Error while processing: %v", err)
	}

	return records
}

func (add *Addon) createExcludeTorrentsFilter() func(r *streamRecord) bool {
	return func(r *streamRecord) bool {
		return !excludeTorrent(r)
	}
}

func excludeTorrent(r *streamRecord) bool {
	minRes, _ := strconv.Atoi(r.UserData.MinResolution)
	maxRes, _ := strconv.Atoi(r.UserData.MaxResolution)
	minSizeGB, _ := strconv.ParseFloat(r.UserData.MinSize, 64)
	maxSizeGB, _ := strconv.ParseFloat(r.UserData.MaxSize, 64)
	minSeeders, _ := strconv.Atoi(r.UserData.MinSeeders)

	if minSizeGB == 0 {
		minSizeGB = 0.1
	}
	if maxSizeGB == 0 {
		maxSizeGB = 30.0
	}

	minSizeBytes := uint64(minSizeGB * 1024 * 1024 * 1024)
	maxSizeBytes := uint64(maxSizeGB * 1024 * 1024 * 1024)

	var excludedQualities []string
	if r.UserData.ExcludedQualities != "" {
		excludedQualities = strings.Split(strings.ToLower(r.UserData.ExcludedQualities), ",")
		for i, q := range excludedQualities {
			excludedQualities[i] = strings.TrimSpace(q)
		}
	} else {
		excludedQualities = avoidQualities
	}

	qualityOK := !slices.Contains(excludedQualities, r.TitleInfo.Quality) && !r.TitleInfo.ThreeD
	sizeOK := uint64(r.Torrent.Size) >= minSizeBytes && uint64(r.Torrent.Size) <= maxSizeBytes

	resolutionOK := true
	if minRes > 0 && r.TitleInfo.Resolution > 0 && r.TitleInfo.Resolution < minRes {
		resolutionOK = false
	}
	if maxRes > 0 && r.TitleInfo.Resolution > 0 && r.TitleInfo.Resolution > maxRes {
		resolutionOK = false
	}

	imdbOK := r.Torrent.Imdb == 0 || r.Torrent.Imdb == r.MetaInfo.IMDBID
	yearOK := r.TitleInfo.Year == 0 || (r.MetaInfo.FromYear <= r.TitleInfo.Year && r.MetaInfo.ToYear >= r.TitleInfo.Year)
	seasonOK := r.ContentType != ContentTypeSeries || (r.TitleInfo.FromSeason == 0 || (r.TitleInfo.FromSeason <= r.Season && r.TitleInfo.ToSeason >= r.Season))
	episodeOK := r.ContentType != ContentTypeSeries || (r.TitleInfo.Episode == 0 || r.TitleInfo.Episode == r.Episode)
	seedersOK := r.Torrent.Seeders >= uint(minSeeders)

	torrentOK := qualityOK && sizeOK && resolutionOK && imdbOK && yearOK && seasonOK && episodeOK && seedersOK

	// Title similarity check for torrents without IMDB ID
	if torrentOK && r.Torrent.Imdb == 0 {
		diff := checkTitleSimilarity(r.MetaInfo.Name, r.TitleInfo.Title)
		torrentOK = diff < maxTitleDistance
		if !torrentOK && diff < maxTitleDistance+3 {
			log.Infof("Excluded %s, title: %s, diff: %d", r.Torrent.Title, r.TitleInfo.Title, diff)
		}
	}

	return !torrentOK
}

func checkTitleSimilarity(left, right string) int {
	left = nonWordCharacter.ReplaceAllString(left, "")
	right = nonWordCharacter.ReplaceAllString(right, "")
	levenshtein := &metrics.Levenshtein{
		CaseSensitive: false,
		InsertCost:    2,
		DeleteCost:    3,
		ReplaceCost:   3,
	}
	return levenshtein.Distance(left, right)
}

// sortByQualityScore sorts all torrents by a weighted quality score.
func sortByQualityScore(records []*streamRecord) []*streamRecord {
	slices.SortFunc(records, func(r1, r2 *streamRecord) int {
		score1 := calculateQualityScore(r1)
		score2 := calculateQualityScore(r2)

		if score1 > score2 {
			return -1
		}
		if score1 < score2 {
			return 1
		}
		return 0
	})

	return records
}

// calculateQualityScore weights seeders, resolution, source quality and size
// into one comparable number.
func calculateQualityScore(r *streamRecord) float64 {
	resolutionScore := float64(r.TitleInfo.Resolution) / 21.6 // 2160p = 100
	if resolutionScore > 100 {
		resolutionScore = 100
	}

	sourceScore := float64(getQualityScore(r.TitleInfo.Quality)) * 10

	sizeGB := float64(r.Torrent.Size) / (1024 * 1024 * 1024)
	sizeScore := sizeScoreForResolution(r.TitleInfo.Resolution, sizeGB)

	seederScore := float64(r.Torrent.Seeders)
	if seederScore > 100 {
		seederScore = 100
	}

	return (seederScore * 0.4) + (resolutionScore * 0.3) + (sourceScore * 0.2) + (sizeScore * 0.1)
}

func sizeScoreForResolution(resolution int, sizeGB float64) float64 {
	type sizeRange struct {
		min, max float64
		score    float64
	}

	var ranges []sizeRange
	switch {
	case resolution >= 2160:
		ranges = []sizeRange{{15, 30, 100}, {10, 40, 80}, {5, 50, 60}}
	case resolution >= 1080:
		ranges = []sizeRange{{4, 15, 100}, {2, 20, 80}, {1, 25, 60}}
	case resolution >= 720:
		ranges = []sizeRange{{1, 8, 100}, {0.5, 12, 80}, {0.3, 15, 60}}
	default:
		ranges = []sizeRange{{0.5, 4, 100}, {0.2, 6, 80}, {0.1, 8, 60}}
	}

	for _, r := range ranges {
		if sizeGB >= r.min && sizeGB <= r.max {
			return r.score
		}
	}
	return 20
}

// groupByResolution takes the top N per resolution group and interleaves the
// groups for variety.
func groupByResolution(records []*streamRecord, maxPerGroup int) []*streamRecord {
	groups := make(map[int][]*streamRecord)
	for _, record := range records {
		resolution := record.TitleInfo.Resolution
		groups[resolution] = append(groups[resolution], record)
	}

	for resolution, group := range groups {
		group = sortByQualityScore(group)
		if len(group) > maxPerGroup {
			group = group[:maxPerGroup]
		}
		groups[resolution] = group
	}

	var result []*streamRecord
	resolutionOrder := []int{720, 1080, 2160, 480, 360}

	for _, resolution := range resolutionOrder {
		if group, exists := groups[resolution]; exists {
			result = append(result, group...)
		}
	}

	for resolution, group := range groups {
		if !slices.Contains(resolutionOrder, resolution) {
			result = append(result, group...)
		}
	}

	return result
}

func getQualityScore(quality string) int {
	switch quality {
	case "bdremux", "brremux":
		return 10
	case "web-dl", "webrip":
		return 9
	case "bluray":
		return 8
	case "hdrip":
		return 7
	case "dvdrip":
		return 6
	case "dvd":
		return 5
	case "tvrip":
		return 4
	case "cam", "camrip", "telesync", "tsrip":
		return 1
	default:
		return 3
	}
}

func streamItemFromRecord(r *streamRecord) model.StreamItem {
	return model.StreamItem{
		Name:     formatStreamName(r.TitleInfo),
		Title:    formatStreamTitle(r.TitleInfo, uint64(r.Torrent.Size), r.Torrent.Seeders, r.Indexer.Name),
		InfoHash: r.Torrent.InfoHash,
		BehaviorHints: &model.StreamBehaviorHints{
			VideoSize: uint64(r.Torrent.Size),
			FileName:  r.Torrent.FileName,
		},
	}
}

func formatResolution(resolution int) string {
	if name, ok := resolutionName[resolution]; ok {
		return name
	}

	return fmt.Sprintf("%dp", resolution)
}

func formatStreamName(titleInfo *titleparser.MetaInfo) string {
	lines := []string{"DebridX"}

	lines = append(lines, fmt.Sprintf("[%s]", formatResolution(titleInfo.Resolution)))

	if titleInfo.Codec != "" {
		lines = append(lines, fmt.Sprintf("[%s]", strings.ToUpper(titleInfo.Codec)))
	}

	return strings.Join(lines, "\n")
}

func formatStreamTitle(titleInfo *titleparser.MetaInfo, fileSize uint64, seeders uint, indexerName string) string {
	cleanTitle := titleInfo.Title
	if cleanTitle == "" {
		cleanTitle = "Unknown Title"
	} else {
		cleanTitle = strings.ReplaceAll(cleanTitle, ".", " ")
		cleanTitle = strings.Join(strings.Fields(cleanTitle), " ")
	}

	if titleInfo.Year > 0 {
		cleanTitle = fmt.Sprintf("%s (%d)", cleanTitle, titleInfo.Year)
	}

	if titleInfo.FromSeason > 0 && titleInfo.Episode > 0 {
		cleanTitle = fmt.Sprintf("%s S%02dE%02d", cleanTitle, titleInfo.FromSeason, titleInfo.Episode)
	} else if titleInfo.FromSeason > 0 {
		if titleInfo.ToSeason > titleInfo.FromSeason {
			cleanTitle = fmt.Sprintf("%s S%02d-S%02d", cleanTitle, titleInfo.FromSeason, titleInfo.ToSeason)
		} else {
			cleanTitle = fmt.Sprintf("%s S%02d", cleanTitle, titleInfo.FromSeason)
		}
	}

	info := fmt.Sprintf("👤 %d | 💾 %s", seeders, bytesConvert(fileSize))

	if titleInfo.Quality != "" {
		quality := strings.ToUpper(titleInfo.Quality)
		quality = strings.ReplaceAll(quality, "-", " ")
		quality = strings.ReplaceAll(quality, "_", " ")
		info = fmt.Sprintf("%s | [%s]", info, quality)
	}

	lines := []string{cleanTitle, info, fmt.Sprintf("🔍 %s", indexerName)}
	if titleInfo.Language != "" {
		lines = append(lines, fmt.Sprintf("🌍 %s", strings.ToUpper(titleInfo.Language)))
	}

	return strings.Join(lines, "\n")
}

func providerIDPrefixes(engine *moch.Engine) []string {
	prefixes := []string{}
	for _, descriptor := range engine.Descriptors() {
		prefixes = append(prefixes, descriptor.Key+":")
	}
	return prefixes
}

func parseSkip(extra string) int {
	for _, token := range strings.Split(extra, "&") {
		if value, found := strings.CutPrefix(token, "skip="); found {
			skip, err := strconv.Atoi(value)
			if err == nil && skip > 0 {
				return skip
			}
		}
	}
	return 0
}

func getIPAddress(c *fiber.Ctx) string {
	ips := c.GetReqHeaders()["Cf-Connecting-Ip"]
	if len(ips) > 0 {
		return ips[0]
	}

	return c.IP()
}

func parseUserData(add *Addon, c *fiber.Ctx) (*UserData, error) {
	userDataRaw := c.Params("userData")
	if userDataRaw == "" {
		return nil, errors.New("configuration is required")
	}

	userDataJson, err := url.PathUnescape(userDataRaw)
	if err != nil {
		log.Errorf("Failed URL decode userdata: %v", err)
		return nil, errors.New("invalid userData")
	}

	userData := &UserData{}
	err = json.Unmarshal([]byte(userDataJson), userData)
	if err != nil {
		log.Errorf("Failed JSON unmarshal userdata: %v", err)
		return nil, errors.New("invalid userData")
	}

	userData.ApplyDefaults()

	prowlarrConfigured := (userData.ProwlarrURL != "" || add.prowlarrURL != "") &&
		(userData.ProwlarrAPIKey != "" || add.prowlarrAPIKey != "")

	if !prowlarrConfigured && len(userData.MochKeys()) == 0 {
		log.Errorf("No services configured: Prowlarr or a debrid provider required")
		return nil, errors.New("prowlarr or a debrid provider configuration is required")
	}

	return userData, nil
}
