package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/John-Robertt/VNMC/internal/domain"
)

// recordView 是 GameRecord 的 JSON 输出投影：
// 指针字段按“缺失即省略”序列化，派生链接在这里算好一并输出。
type recordView struct {
	Id       int    `json:"id"`
	GameName string `json:"game_name"`
	Furigana string `json:"furigana,omitempty"`

	BrandName string `json:"brand_name,omitempty"`
	BrandURL  string `json:"brand_url,omitempty"`

	SellDay     string `json:"sell_day,omitempty"`
	Median      *int   `json:"median,omitempty"`
	Average     *int   `json:"average,omitempty"`
	ReviewCount *int   `json:"review_count,omitempty"`

	Description string   `json:"description,omitempty"`
	IsEroge     bool     `json:"is_eroge"`
	SeriesName  string   `json:"series_name,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Features    []string `json:"features,omitempty"`

	CoverImageURL       string   `json:"cover_image_url,omitempty"`
	BackgroundImageURLs []string `json:"background_image_urls,omitempty"`

	PageURL   string `json:"page_url"`
	DlsiteURL string `json:"dlsite_url,omitempty"`
	DmmURL    string `json:"dmm_url,omitempty"`
}

func newRecordView(rec *domain.GameRecord) recordView {
	return recordView{
		Id:       rec.Id,
		GameName: rec.GameName,
		Furigana: rec.Furigana,

		BrandName: rec.BrandName,
		BrandURL:  rec.BrandURL,

		SellDay:     formatDate(rec.SellDay),
		Median:      rec.Median,
		Average:     rec.Average,
		ReviewCount: rec.ReviewCount,

		Description: rec.Description,
		IsEroge:     rec.IsEroge,
		SeriesName:  rec.SeriesName,
		Tags:        rec.Tags,
		Genres:      rec.Genres,
		Features:    rec.Features,

		CoverImageURL:       rec.CoverImageURL(),
		BackgroundImageURLs: rec.BackgroundImageURLs,

		PageURL:   rec.PageURL(),
		DlsiteURL: rec.DlsiteURL(),
		DmmURL:    rec.DmmURL(),
	}
}

func writeRecordJSON(w io.Writer, rec *domain.GameRecord) error {
	b, err := json.MarshalIndent(newRecordView(rec), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
