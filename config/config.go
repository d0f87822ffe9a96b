package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/log"
	"github.com/omniscale/osm3d/mapping"
	"github.com/omniscale/osm3d/proj"
)

// Config is the content of a -config file.
type Config struct {
	BBox              *BBox           `yaml:"bbox"`
	Import            mapping.Toggles `yaml:"import"`
	NodeTags          []string        `yaml:"node_tags"`
	Lenient           bool            `yaml:"lenient"`
	DecimalDimensions bool            `yaml:"decimal_dimensions"`
	Origin            *Origin         `yaml:"origin"`
	Output            string          `yaml:"output"`
	Quiet             bool            `yaml:"quiet"`
	LogLevel          string          `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Import:            mapping.DefaultToggles(),
		DecimalDimensions: true,
	}
}

// BBox limits the imported nodes, in degrees.
type BBox struct {
	MinLat  float64 `yaml:"min_lat"`
	MaxLat  float64 `yaml:"max_lat"`
	MinLong float64 `yaml:"min_lon"`
	MaxLong float64 `yaml:"max_lon"`
}

var World = BBox{MinLat: -90, MaxLat: 90, MinLong: -180, MaxLong: 180}

// UnmarshalYAML keeps the World bounds for missing keys.
func (b *BBox) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain BBox
	p := plain(World)
	if err := unmarshal(&p); err != nil {
		return err
	}
	*b = BBox(p)
	return nil
}

func (b BBox) Filter() element.BoundingFilter {
	return element.NewBoundingFilter(b.MinLat, b.MaxLat, b.MinLong, b.MaxLong)
}

// String returns the bbox in flag format: minlat,minlon,maxlat,maxlon
func (b *BBox) String() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MinLong, b.MaxLat, b.MaxLong)
}

func (b *BBox) Set(value string) error {
	v, err := floats(value, 4)
	if err != nil {
		return errors.Wrap(err, "bbox")
	}
	*b = BBox{MinLat: v[0], MinLong: v[1], MaxLat: v[2], MaxLong: v[3]}
	return nil
}

func (b BBox) check() []error {
	errs := []error{}
	if b.MinLat > b.MaxLat {
		errs = append(errs, errors.Errorf("bbox: min_lat %g larger than max_lat %g", b.MinLat, b.MaxLat))
	}
	if b.MinLong > b.MaxLong {
		errs = append(errs, errors.Errorf("bbox: min_lon %g larger than max_lon %g", b.MinLong, b.MaxLong))
	}
	if b.MinLat < -90 || b.MaxLat > 90 {
		errs = append(errs, errors.New("bbox: latitude out of -90..90"))
	}
	if b.MinLong < -180 || b.MaxLong > 180 {
		errs = append(errs, errors.New("bbox: longitude out of -180..180"))
	}
	return errs
}

// Origin is the geographic reference point of the planar coordinates.
type Origin struct {
	Lat  float64 `yaml:"lat"`
	Long float64 `yaml:"lon"`
}

func (o Origin) Proj() proj.Origin {
	return proj.NewOrigin(o.Lat, o.Long)
}

// originFlag sets a *Origin from "lat,lon".
type originFlag struct {
	o **Origin
}

func (f originFlag) String() string {
	if f.o == nil || *f.o == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g", (*f.o).Lat, (*f.o).Long)
}

func (f originFlag) Set(value string) error {
	v, err := floats(value, 2)
	if err != nil {
		return errors.Wrap(err, "origin")
	}
	*f.o = &Origin{Lat: v[0], Long: v[1]}
	return nil
}

// listFlag sets a []string from a comma separated list.
type listFlag struct {
	l *[]string
}

func (f listFlag) String() string {
	if f.l == nil {
		return ""
	}
	return strings.Join(*f.l, ",")
}

func (f listFlag) Set(value string) error {
	*f.l = nil
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*f.l = append(*f.l, v)
		}
	}
	return nil
}

func floats(value string, n int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != n {
		return nil, errors.Errorf("expected %d comma separated numbers, got %q", n, value)
	}
	result := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Errorf("invalid number %q", p)
		}
		result[i] = f
	}
	return result, nil
}

type Base struct {
	ConfigFile string
	BBox       BBox
	Toggles    mapping.Toggles
	NodeTags   []string
	Lenient    bool
	Decimals   bool
	// Origin is used for inputs without bounds, nil for 0,0.
	Origin *Origin
	Quiet  bool
	// LogLevel is the minimum log level, overrides Quiet if set.
	LogLevel string
}

type Import struct {
	Base
	// Output of the scene, see scene.TypeFromOutput.
	Output string
	// Metrics is a file for the final counters in Prometheus text format.
	Metrics string
	// Concurrency is the number of input files read in parallel.
	Concurrency int
	Files       []string
}

func addBaseFlags(opts *Base, flags *flag.FlagSet) {
	flags.StringVar(&opts.ConfigFile, "config", "", "config (yaml)")
	flags.Var(&opts.BBox, "bbox", "only import nodes inside minlat,minlon,maxlat,maxlon")
	flags.BoolVar(&opts.Toggles.Buildings, "buildings", true, "import buildings, building parts and amenities")
	flags.BoolVar(&opts.Toggles.Naturals, "naturals", true, "import natural areas")
	flags.BoolVar(&opts.Toggles.Highways, "highways", false, "import highways and other linear features")
	flags.BoolVar(&opts.Toggles.Barriers, "barriers", true, "import barriers")
	flags.BoolVar(&opts.Toggles.Landuse, "landuse", true, "import landuse and leisure areas")
	flags.Var(listFlag{&opts.NodeTags}, "nodetags", "comma separated tag keys kept for nodes")
	flags.BoolVar(&opts.Lenient, "lenient", false, "warn about unknown elements instead of failing")
	flags.BoolVar(&opts.Decimals, "decimals", true, "parse decimal fractions of heights")
	flags.Var(originFlag{&opts.Origin}, "origin", "lat,lon origin for inputs without bounds")
	flags.BoolVar(&opts.Quiet, "quiet", false, "quiet log output")
	flags.StringVar(&opts.LogLevel, "loglevel", "", "minimum log level (debug, progress, info, warn, ...)")
}

func newImportFlags(opts *Import, errorHandling flag.ErrorHandling) *flag.FlagSet {
	flags := flag.NewFlagSet("import", errorHandling)
	opts.BBox = World
	addBaseFlags(&opts.Base, flags)
	flags.StringVar(&opts.Output, "output", "", "scene output, e.g. scene.jsonl or null:")
	flags.StringVar(&opts.Metrics, "metrics", "", "write counters to this file")
	flags.IntVar(&opts.Concurrency, "concurrency", runtime.NumCPU(), "number of files read in parallel")
	return flags
}

// updateFromConfig sets all options that were not set by flags from the
// config file.
func (o *Import) updateFromConfig(set map[string]bool) error {
	conf := defaultConfig()
	if o.ConfigFile != "" {
		f, err := os.Open(o.ConfigFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := decodeConfig(f, &conf); err != nil {
			return errors.Wrapf(err, "config %s", o.ConfigFile)
		}
	}

	if !set["bbox"] && conf.BBox != nil {
		o.BBox = *conf.BBox
	}
	if !set["buildings"] {
		o.Toggles.Buildings = conf.Import.Buildings
	}
	if !set["naturals"] {
		o.Toggles.Naturals = conf.Import.Naturals
	}
	if !set["highways"] {
		o.Toggles.Highways = conf.Import.Highways
	}
	if !set["barriers"] {
		o.Toggles.Barriers = conf.Import.Barriers
	}
	if !set["landuse"] {
		o.Toggles.Landuse = conf.Import.Landuse
	}
	if !set["nodetags"] {
		o.NodeTags = conf.NodeTags
	}
	if !set["lenient"] {
		o.Lenient = conf.Lenient
	}
	if !set["decimals"] {
		o.Decimals = conf.DecimalDimensions
	}
	if !set["origin"] {
		o.Origin = conf.Origin
	}
	if !set["output"] && conf.Output != "" {
		o.Output = conf.Output
	}
	if !set["quiet"] {
		o.Quiet = conf.Quiet
	}
	if !set["loglevel"] {
		o.LogLevel = conf.LogLevel
	}
	return nil
}

func decodeConfig(r io.Reader, conf *Config) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(b, conf)
}

func (o *Import) check() []error {
	errs := o.BBox.check()
	if o.Origin != nil && (o.Origin.Lat < -90 || o.Origin.Lat > 90) {
		errs = append(errs, errors.New("origin: latitude out of -90..90"))
	}
	if o.LogLevel != "" {
		if _, err := log.ParseLevel(o.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}
	if o.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency needs to be at least 1"))
	}
	if len(o.Files) == 0 {
		errs = append(errs, errors.New("missing input file"))
	}
	return errs
}

func parseImport(args []string, errorHandling flag.ErrorHandling) (Import, *flag.FlagSet, []error) {
	opts := Import{}
	flags := newImportFlags(&opts, errorHandling)
	if err := flags.Parse(args); err != nil {
		return opts, flags, []error{err}
	}
	opts.Files = flags.Args()

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := opts.updateFromConfig(set); err != nil {
		return opts, flags, []error{err}
	}
	return opts, flags, opts.check()
}

// ParseImport parses the arguments of the import command. It exits on
// invalid arguments.
func ParseImport(args []string) Import {
	opts, flags, errs := parseImport(args, flag.ExitOnError)
	if len(errs) != 0 {
		reportErrors(errs)
		fmt.Fprintf(os.Stderr, "Usage: %s import [args] file.osm [file.osm.pbf ...]\n\n", os.Args[0])
		flags.PrintDefaults()
		os.Exit(2)
	}
	return opts
}

func reportErrors(errs []error) {
	fmt.Fprintln(os.Stderr, "errors in config/options:")
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "\t%s\n", err)
	}
}
