package notification

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/errors"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/contentdir/pkg/config"
	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/httputils"
)

const (
	maxEmbedsPerMessage = 10
	maxCharactersPerMsg = 6000

	// hardcoded limit of fields to avoid hammering the api
	maxTotalFields = 250
)

type DiscordMessage struct {
	Content interface{}    `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       int                  `json:"color"`
	Fields      []DiscordEmbedsField `json:"fields,omitempty"`
	Footer      DiscordEmbedsFooter  `json:"footer,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

type DiscordEmbedsFooter struct {
	Text string `json:"text"`
}

type DiscordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedColors int

const (
	LIGHT_BLUE EmbedColors = 0x58b9ff
	GRAY       EmbedColors = 0x99aab5
)

type discordSender struct {
	log    *logrus.Entry
	config config.NotificationsConfig

	httpClient *http.Client
}

func (d *discordSender) Name() string {
	return "discord"
}

func NewDiscordSender(log *logrus.Entry, config config.NotificationsConfig) Sender {
	return &discordSender{
		log:    log.WithField("sender", "discord"),
		config: config,
		// webhooks allow about 30 requests per minute
		httpClient: httputils.NewRetryableHttpClient(30*time.Second, ratelimit.New(1, ratelimit.Per(2*time.Second)), log),
	}
}

func (d *discordSender) Send(title string, description string, runTime time.Duration, fields []Field) error {
	if len(fields) == 0 && d.config.SkipEmptyRun {
		return nil
	}

	embeds := d.buildEmbeds(title, description, runTime, fields)
	batches, err := batchEmbeds(embeds)
	if err != nil {
		return err
	}

	for i, batch := range batches {
		jsonData, err := json.Marshal(DiscordMessage{Embeds: batch})
		if err != nil {
			return errors.Wrap(err, "could not marshal json request for a message chunk")
		}

		if err := d.sendRequest(jsonData); err != nil {
			return errors.Wrap(err, "failed to send a message chunk to Discord")
		}

		d.log.Debugf("Sent Discord message %d/%d (%d embeds, %d chars).", i+1, len(batches), len(batch), len(jsonData))
	}

	return nil
}

// buildEmbeds returns one embed per field followed by a summary, or only the
// summary when there is nothing to detail or too much of it.
func (d *discordSender) buildEmbeds(title string, description string, runTime time.Duration, fields []Field) []DiscordEmbed {
	var (
		total     = len(fields)
		timestamp = time.Now()
		rt        = runTime.Truncate(time.Millisecond).String()
	)

	summary := DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       int(GRAY),
		Footer:      DiscordEmbedsFooter{Text: buildFooter(0, total, rt)},
		Timestamp:   timestamp,
	}

	if total == 0 || total > maxTotalFields || !d.config.Detailed {
		return []DiscordEmbed{summary}
	}

	embeds := make([]DiscordEmbed, 0, total+1)
	for i, field := range fields {
		embed := DiscordEmbed{
			Title:     title,
			Color:     int(LIGHT_BLUE),
			Fields:    d.parseFieldValueToInlineFields(field.Value),
			Footer:    DiscordEmbedsFooter{Text: buildFooter(i+1, total, rt)},
			Timestamp: timestamp,
		}

		if field.Name != "" {
			embed.Description = fmt.Sprintf("**%s**", field.Name)
		}

		embeds = append(embeds, embed)
	}

	summary.Title = fmt.Sprintf("%s - Summary", title)
	summary.Footer.Text = buildFooter(0, 0, rt)
	return append(embeds, summary)
}

// batchEmbeds groups embeds into messages that respect both the per-message
// embed count and character limits.
func batchEmbeds(embeds []DiscordEmbed) ([][]DiscordEmbed, error) {
	var (
		batches [][]DiscordEmbed
		current []DiscordEmbed
		chars   int
	)

	for _, e := range embeds {
		jsonData, err := json.Marshal(e)
		if err != nil {
			return nil, errors.Wrap(err, "failed to calculate embed size for batching")
		}

		size := len(jsonData)
		if len(current) > 0 && (len(current) >= maxEmbedsPerMessage || chars+size > maxCharactersPerMsg) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}

		current = append(current, e)
		chars += size
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches, nil
}

func (d *discordSender) CanSend() bool {
	return d.config.Service.Discord != ""
}

func (d *discordSender) sendRequest(jsonData []byte) error {
	req, err := http.NewRequest(http.MethodPost, d.config.Service.Discord, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := d.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "client request error")
	}
	defer res.Body.Close()

	d.log.Tracef("Discord response status: %d", res.StatusCode)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		body, readErr := io.ReadAll(bufio.NewReader(res.Body))
		if readErr != nil {
			return errors.Wrap(readErr, "could not read body")
		}

		return errors.New("unexpected status: %v body: %v", res.StatusCode, string(body))
	}

	return nil
}

// BuildField renders one changed file as inline fields serialized to JSON.
func (d *discordSender) BuildField(action Action, opt BuildOptions) Field {
	f := opt.File
	var inlineFields []DiscordEmbedsField

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Change",
		Value:  action.String(),
		Inline: true,
	})

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Progress",
		Value:  fmt.Sprintf("%.1f%%", float64(f.PercentDone)/10),
		Inline: true,
	})

	if f.ETA > 0 && f.ETA != content.UnknownETA {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "ETA",
			Value:  (time.Duration(f.ETA) * time.Second).String(),
			Inline: true,
		})
	}

	if len(f.Categories) > 0 {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Category",
			Value:  strings.Join(f.Categories, ", "),
			Inline: true,
		})
	}

	if len(f.Tags) > 0 {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Tags",
			Value:  strings.Join(f.Tags, ", "),
			Inline: true,
		})
	}

	if !f.CreationDate.IsZero() {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Added",
			Value:  humanize.Time(f.CreationDate),
			Inline: true,
		})
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Download",
		Value:  fmt.Sprintf("%s [%s]", f.Download, f.Hash.Short()),
		Inline: false,
	})

	jsonData, _ := json.Marshal(inlineFields)

	name := f.Name
	if name == "" {
		name = fmt.Sprintf("file %d", f.Index)
	}

	return Field{
		Name:  fmt.Sprintf("%s (%s)", name, humanize.IBytes(uint64(f.Length))),
		Value: string(jsonData),
	}
}

func (d *discordSender) parseFieldValueToInlineFields(value string) []DiscordEmbedsField {
	var fields []DiscordEmbedsField

	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		d.log.WithError(err).Error("Failed to parse field value as JSON")
		return []DiscordEmbedsField{}
	}

	return fields
}

func buildFooter(progress int, totalFields int, runTime string) string {
	if totalFields == 0 {
		return fmt.Sprintf("Started: %s ago", runTime)
	}

	return fmt.Sprintf("Progress: %d/%d | Started: %s ago", progress, totalFields, runTime)
}
