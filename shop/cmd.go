package shop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/ecomlab/shoplt/auth"
	"github.com/ecomlab/shoplt/fasthttp"
	"github.com/ecomlab/shoplt/loadgen"
	"github.com/ecomlab/shoplt/metrics"
	"github.com/ecomlab/shoplt/nethttp"
	"github.com/ecomlab/shoplt/report"
	"github.com/ecomlab/shoplt/s3"
)

// ErrUploadNeedsCSV is returned when report upload is requested without csv output.
var ErrUploadNeedsCSV = errors.New("shop: --s3-bucket requires --csv")

// Flags control shop command.
type Flags struct {
	ConfigFile string
	Auth       auth.Flags
	Headers    []string

	Timeout     time.Duration
	Fast        bool
	HTTP2       bool
	HTTP3       bool
	NoKeepalive bool
	Breaker     bool

	PrometheusListen string

	S3 s3.Flags
}

// AddCommand registers shop command into CLI app.
func AddCommand(lf *loadgen.Flags) {
	var f Flags

	shop := kingpin.Command("shop", "Simulate e-commerce users against gateway").Default()

	shop.Flag("config", "Scenario YAML file, stock scenario is used if empty.").
		PlaceHolder("shop.yaml").StringVar(&f.ConfigFile)
	shop.Flag("token", "Static bearer token (env SHOPLT_TOKEN), minted from jwt secret if empty.").
		Envar("SHOPLT_TOKEN").StringVar(&f.Auth.Token)
	shop.Flag("jwt-secret", "HS256 secret to mint bearer token (env SHOPLT_JWT_SECRET).").
		Envar("SHOPLT_JWT_SECRET").Default("secret").StringVar(&f.Auth.Secret)
	shop.Flag("jwt-subject", "Subject of minted token.").
		Default("testuser").StringVar(&f.Auth.Subject)
	shop.Flag("jwt-ttl", "Lifetime of minted token.").
		Default(auth.DefaultTTL.String()).DurationVar(&f.Auth.TTL)
	shop.Flag("header", "Extra request header, can be repeated.").
		Short('H').PlaceHolder("'Name: value'").StringsVar(&f.Headers)
	shop.Flag("timeout", "Request timeout, 0 disables timeout.").
		Default("30s").DurationVar(&f.Timeout)
	shop.Flag("fast", "Use fasthttp to achieve higher request rate.").BoolVar(&f.Fast)
	shop.Flag("http2", "Use HTTP/2, plain http targets get prior knowledge h2c.").BoolVar(&f.HTTP2)
	shop.Flag("http3", "Use quic-go http3.").BoolVar(&f.HTTP3)
	shop.Flag("no-keepalive", "Disable HTTP keepalive.").BoolVar(&f.NoKeepalive)
	shop.Flag("breaker", "Fail requests fast with circuit breaker when gateway is unreachable.").BoolVar(&f.Breaker)
	shop.Flag("prometheus-listen", "Serve Prometheus metrics at /metrics on this address during the run.").
		PlaceHolder("127.0.0.1:9100").StringVar(&f.PrometheusListen)

	s3.AddFlags(shop, &f.S3)

	shop.Action(func(_ *kingpin.ParseContext) error {
		ctx, cancel := loadgen.RootContext()
		defer cancel()

		return Run(ctx, *lf, f)
	})
}

// ParseHeaders converts "Name: value" lines into canonical header map.
func ParseHeaders(lines []string) (map[string]string, error) {
	headers := make(map[string]string, len(lines))

	for _, h := range lines {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}

		headers[http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))] = strings.Trim(parts[1], " ")
	}

	return headers, nil
}

type transport interface {
	Transport
	loadgen.TransportStats
}

func newTransport(lf loadgen.Flags, f Flags) (transport, error) {
	headers, err := ParseHeaders(f.Headers)
	if err != nil {
		return nil, err
	}

	nf := nethttp.Flags{
		URL:         lf.Host,
		HeaderMap:   headers,
		Timeout:     f.Timeout,
		NoKeepalive: f.NoKeepalive,
		HTTP2:       f.HTTP2,
		HTTP3:       f.HTTP3,
		Breaker:     f.Breaker,
		Concurrency: lf.Users,
	}

	if f.Fast {
		c, err := fasthttp.NewClient(nf)
		if err != nil {
			return nil, err
		}

		return c, nil
	}

	c, err := nethttp.NewClient(nf)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Run executes scenario with runner flags.
func Run(ctx context.Context, lf loadgen.Flags, f Flags) error {
	lf.Prepare()

	if f.S3.Bucket != "" && lf.CSVPrefix == "" {
		return ErrUploadNeedsCSV
	}

	cfg, err := LoadConfig(f.ConfigFile)
	if err != nil {
		return err
	}

	token, err := auth.Token(f.Auth, time.Now())
	if err != nil {
		return err
	}

	tr, err := newTransport(lf, f)
	if err != nil {
		return err
	}

	stats := loadgen.NewStats(lf.SlowResponse)
	reporters := loadgen.Reporters{stats}

	if f.PrometheusListen != "" {
		exp := metrics.NewExporter(stats.Users)

		if _, err := exp.Serve(ctx, f.PrometheusListen); err != nil {
			return err
		}

		reporters = append(reporters, exp)
	}

	sc := &Scenario{
		Config:    cfg,
		Transport: tr,
		Reporter:  reporters,
		Token:     token,
	}

	loadgen.Logger.Infow("running shop scenario",
		"host", lf.Host,
		"primaryWeight", cfg.Primary.Weight,
		"healthWeight", cfg.Health.Weight,
		"checkoutWeight", cfg.Checkout.Weight,
	)

	if err := loadgen.Run(ctx, lf, loadgen.Scenario{
		Profiles:  sc.Profiles(),
		Stats:     stats,
		Transport: tr,
	}); err != nil {
		return err
	}

	if f.S3.Bucket == "" {
		return nil
	}

	locations, err := s3.Upload(context.WithoutCancel(ctx), f.S3, report.CSVFiles(lf.CSVPrefix))
	if err != nil {
		return err
	}

	for _, loc := range locations {
		loadgen.Logger.Infow("report uploaded", "location", loc)
	}

	return nil
}
