// Package cinemeta resolves IMDb ids to names and years through Stremio's
// public Cinemeta addon.
package cinemeta

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dbytex91/debridx/internal/model"
)

type CineMeta struct {
	client *resty.Client
}

type MovieInfoResponse struct {
	Meta MetaInfo `json:"meta"`
}

type MetaInfo struct {
	Name   string `json:"name"`
	Year   string `json:"year"`
	IMDBID string `json:"imdb_id"`
}

func New() *CineMeta {
	return &CineMeta{
		client: resty.New().SetBaseURL("https://v3-cinemeta.strem.io"),
	}
}

func (c *CineMeta) GetMovieById(id string) (*model.MetaInfo, error) {
	result, err := c.getMeta("movie", id)
	if err != nil {
		return nil, err
	}

	year, _ := strconv.Atoi(result.Meta.Year)
	imdbID, _ := strconv.Atoi(strings.TrimPrefix(result.Meta.IMDBID, "tt"))

	return &model.MetaInfo{
		Name:     result.Meta.Name,
		IMDBID:   uint(imdbID),
		FromYear: year,
		ToYear:   year,
	}, nil
}

func (c *CineMeta) GetSeriesById(id string) (*model.MetaInfo, error) {
	result, err := c.getMeta("series", id)
	if err != nil {
		return nil, err
	}

	// Running shows report an open range like "2011–".
	tokens := strings.Split(result.Meta.Year, "–")
	fromYear := 0
	toYear := 0
	if len(tokens) > 1 {
		fromYear, _ = strconv.Atoi(tokens[0])
		toYear, _ = strconv.Atoi(tokens[1])
	} else if len(tokens) > 0 {
		fromYear, _ = strconv.Atoi(tokens[0])
		toYear = fromYear
	}
	imdbID, _ := strconv.Atoi(strings.TrimPrefix(result.Meta.IMDBID, "tt"))

	return &model.MetaInfo{
		Name:     result.Meta.Name,
		IMDBID:   uint(imdbID),
		FromYear: fromYear,
		ToYear:   toYear,
	}, nil
}

func (c *CineMeta) getMeta(contentType string, id string) (*MovieInfoResponse, error) {
	resp, err := c.client.R().
		SetResult(&MovieInfoResponse{}).
		Get(fmt.Sprintf("/meta/%s/%s.json", contentType, id))
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, fmt.Errorf("cinemeta: unexpected response %d for %s", resp.StatusCode(), id)
	}

	return resp.Result().(*MovieInfoResponse), nil
}
