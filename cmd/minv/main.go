package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/gsimon75/matcache/internal/matcache"
	"github.com/gsimon75/matcache/internal/matio"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var (
	matrixLit     = flag.String("matrix", "", "Matrix literal, rows separated by ';' (e.g. '1,4,6;2,1,7;3,7,8')")
	inputPath     = flag.String("input", "", "Read the matrix from an Arrow IPC file instead of -matrix")
	maxCond       = flag.Float64("maxcond", 0, "Accept ill-conditioned matrices up to this condition number (0 = gonum default)")
	arrowOut      = flag.Bool("arrow", false, "Write the inverse to stdout as an Arrow IPC stream instead of text")
	resolves      = flag.Int("resolves", 2, "Number of resolve calls in demo mode (>=2 exercises the cache)")
	listenAddr    = flag.String("listen", "", "Address to listen on for HTTP Server (e.g. :8080)")
	maxConcurrent = flag.Int("max-concurrent", 64, "Maximum number of concurrent inversion requests")
	cpuProfile    = flag.String("cpuprofile", "", "Write cpu profile to file")
	enableOTel    = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
)

// demoMatrix is used when neither -matrix nor -input is given.
const demoMatrix = "1,4,6;2,1,7;3,7,8"

func main() {
	// Initialize logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	flag.Parse()

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer shutdown(context.Background())
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	m, err := loadMatrix()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load matrix")
	}
	rows, cols := m.Dims()
	log.Info().Int("rows", rows).Int("cols", cols).Msg("Loaded matrix")

	holder := matcache.New(m)
	resolver := matcache.NewResolver(matcache.WithObserver(matcache.NewLogObserver(log.Logger)))
	invOpts := matcache.InversionOptions{MaxCond: *maxCond}

	// Server Mode
	if *listenAddr != "" {
		startServer(*listenAddr, holder, resolver, invOpts, *maxConcurrent)
		return
	}

	// Demo mode: resolve repeatedly against the same holder. The first
	// call computes, every further call comes back from the cache.
	n := *resolves
	if n < 1 {
		n = 1
	}
	var result *mat.Dense
	for i := 0; i < n; i++ {
		start := time.Now()
		res, err := resolver.Resolve(holder, invOpts)
		if err != nil {
			log.Fatal().Err(err).Msg("Inversion failed")
		}
		log.Info().
			Int("call", i+1).
			Dur("elapsed", time.Since(start)).
			Msg("Resolved inverse")
		result = res
	}

	if *arrowOut {
		if err := matio.WriteIPC(os.Stdout, result); err != nil {
			log.Fatal().Err(err).Msg("Failed to write Arrow stream")
		}
		return
	}
	fmt.Println(matio.Format(result))
}

func loadMatrix() (*mat.Dense, error) {
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close input file")
			}
		}()
		return matio.ReadIPC(f)
	}

	lit := *matrixLit
	if lit == "" {
		lit = demoMatrix
	}
	return matio.Parse(lit)
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("minv"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
