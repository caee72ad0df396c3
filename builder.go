package vitalpipe

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog is the read-only reference and preference data a collaborator
// loads once and shares across pipeline invocations.
type Catalog struct {
	References  map[string]ParameterReference
	Preferences map[string]UserPreference
}

// ParameterIDs returns the catalog's parameter ids in stable order.
func (c *Catalog) ParameterIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.References))
	for id := range c.References {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type boardCfg struct {
	WidgetsPerRow   int `yaml:"widgets_per_row"`
	SparklinePoints int `yaml:"sparkline_points"`
	SeriesThreshold int `yaml:"series_threshold"`
}

type alertsCfg struct {
	DedupWindowSec int    `yaml:"dedup_window_sec"`
	RateWindowSec  int    `yaml:"rate_window_sec"`
	Burst          int    `yaml:"burst"`
	MinSeverity    string `yaml:"min_severity"`
	CooldownSec    int    `yaml:"cooldown_sec"`
	File           string `yaml:"file"`
}

type chartOptionCfg struct {
	Type      string `yaml:"type"`
	IsDefault bool   `yaml:"is_default"`
}

type parameterCfg struct {
	DisplayName   string           `yaml:"display_name"`
	Category      string           `yaml:"category"`
	Unit          string           `yaml:"unit"`
	Description   string           `yaml:"description"`
	NormalMin     *float64         `yaml:"normal_min"`
	NormalMax     *float64         `yaml:"normal_max"`
	CriticalMin   *float64         `yaml:"critical_min"`
	CriticalMax   *float64         `yaml:"critical_max"`
	DisplayMin    *float64         `yaml:"display_min"`
	DisplayMax    *float64         `yaml:"display_max"`
	DefaultChart  string           `yaml:"default_chart"`
	AllowedCharts []chartOptionCfg `yaml:"allowed_charts"`
}

type gridCfg struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

type preferenceCfg struct {
	Chart        string   `yaml:"chart"`
	Hidden       bool     `yaml:"hidden"`
	DisplayOrder int      `yaml:"display_order"`
	Grid         *gridCfg `yaml:"grid"`
}

type pipelineConfig struct {
	Board       boardCfg                 `yaml:"board"`
	Alerts      alertsCfg                `yaml:"alerts"`
	Parameters  map[string]parameterCfg  `yaml:"parameters"`
	Preferences map[string]preferenceCfg `yaml:"preferences"`
}

func defaultPipelineConfig() pipelineConfig {
	var cfg pipelineConfig
	cfg.Board.WidgetsPerRow = 3
	cfg.Board.SparklinePoints = DefaultSparklinePoints
	cfg.Board.SeriesThreshold = 200
	cfg.Alerts.DedupWindowSec = 300
	cfg.Alerts.RateWindowSec = 60
	cfg.Alerts.Burst = 10
	return cfg
}

// PipelineBuilder assembles a Pipeline and its Catalog from YAML. Inline
// config fragments take precedence over a config file; both overlay the
// compiled-in defaults.
type PipelineBuilder struct {
	config     []string
	configFile string

	// WarnOut receives data-quality warnings (e.g. a critical bound inside
	// the normal range). The pipeline itself never rejects such data.
	WarnOut io.Writer
}

func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{}
}

func (pb *PipelineBuilder) SetConfig(configs ...string) {
	pb.config = configs
}

func (pb *PipelineBuilder) SetConfigFile(path string) {
	pb.configFile = path
}

func (pb *PipelineBuilder) Build() (*Pipeline, *Catalog, error) {
	cfg := defaultPipelineConfig()

	var raw string
	switch {
	case len(pb.config) > 0:
		raw = strings.Join(pb.config, "\n")
	case pb.configFile != "":
		data, err := os.ReadFile(pb.configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read config file %q: %w", pb.configFile, err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) != "" {
		if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
			return nil, nil, err
		}
	}

	catalog := &Catalog{
		References:  make(map[string]ParameterReference, len(cfg.Parameters)),
		Preferences: make(map[string]UserPreference, len(cfg.Preferences)),
	}
	for id, pc := range cfg.Parameters {
		ref := ParameterReference{
			DisplayName: pc.DisplayName,
			Category:    pc.Category,
			Unit:        pc.Unit,
			Description: pc.Description,
			Thresholds: Thresholds{
				NormalMin:   pc.NormalMin,
				NormalMax:   pc.NormalMax,
				CriticalMin: pc.CriticalMin,
				CriticalMax: pc.CriticalMax,
			},
			DisplayMin:   pc.DisplayMin,
			DisplayMax:   pc.DisplayMax,
			DefaultChart: ParseChartType(pc.DefaultChart),
		}
		for _, opt := range pc.AllowedCharts {
			ref.AllowedCharts = append(ref.AllowedCharts, ChartOption{
				Type:      ParseChartType(opt.Type),
				IsDefault: opt.IsDefault,
			})
		}
		if ref.DisplayName == "" {
			ref.DisplayName = id
		}
		if err := ref.Thresholds.Validate(); err != nil && pb.WarnOut != nil {
			fmt.Fprintf(pb.WarnOut, "parameter %s: %v\n", id, err)
		}
		catalog.References[id] = ref
	}
	for id, uc := range cfg.Preferences {
		pref := UserPreference{
			Hidden:       uc.Hidden,
			DisplayOrder: uc.DisplayOrder,
		}
		if uc.Chart != "" {
			pref.Chart = ParseChartType(uc.Chart)
		}
		if uc.Grid != nil {
			pref.Grid = &GridRect{X: uc.Grid.X, Y: uc.Grid.Y, W: uc.Grid.W, H: uc.Grid.H}
		}
		catalog.Preferences[id] = pref
	}

	pipe := &Pipeline{
		WidgetsPerRow:   cfg.Board.WidgetsPerRow,
		SparklinePoints: cfg.Board.SparklinePoints,
		SeriesThreshold: cfg.Board.SeriesThreshold,
	}
	if cfg.Alerts.DedupWindowSec > 0 {
		pipe.Deduper = &AlertDeduper{Window: time.Duration(cfg.Alerts.DedupWindowSec) * time.Second}
	}
	if cfg.Alerts.RateWindowSec > 0 && cfg.Alerts.Burst > 0 {
		pipe.Limiter = &AlertRateLimiter{
			Window: time.Duration(cfg.Alerts.RateWindowSec) * time.Second,
			Burst:  cfg.Alerts.Burst,
		}
	}

	var responders []AlertResponder
	if cfg.Alerts.File != "" {
		responders = append(responders, NewAlertFileResponder(cfg.Alerts.File, 0))
	}
	if len(responders) > 0 || cfg.Alerts.MinSeverity != "" || cfg.Alerts.CooldownSec > 0 {
		router := &NotifyRouter{Pipeline: &ResponderPipeline{Responders: responders}}
		if cfg.Alerts.MinSeverity != "" || cfg.Alerts.CooldownSec > 0 {
			router.Policy = &NotifyPolicy{
				MinSeverity: AlertSeverity(cfg.Alerts.MinSeverity),
				Cooldown:    time.Duration(cfg.Alerts.CooldownSec) * time.Second,
			}
		}
		pipe.Router = router
	}

	return pipe, catalog, nil
}
