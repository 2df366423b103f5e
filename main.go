package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/analyzer"
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/generator"
	"github.com/jbuilder-tools/go-jbuilderspec-generator/internal/routes"
)

type Config struct {
	ViewsPath     string `json:"views_path"`
	RoutesPath    string `json:"routes_path"`
	OutputPath    string `json:"output_path"`
	OutputFormat  string `json:"output_format"`
	ServerURL     string `json:"server_url"`
	Title         string `json:"title"`
	Version       string `json:"version"`
	Description   string `json:"description"`
	UseComponents bool   `json:"use_components"`
}

func main() {
	// cmd line flags
	var (
		configPath    = flag.String("config", "", "Path to configuration file")
		viewsPath     = flag.String("views", "app/views", "Path to the jbuilder views root")
		routesPath    = flag.String("routes", "routes.yaml", "Path to the routes manifest")
		outputPath    = flag.String("output", "openapi.yaml", "Output file path")
		outputFormat  = flag.String("format", "yaml", "Output format (json|yaml)")
		serverURL     = flag.String("server", "http://localhost:3000", "Server URL")
		title         = flag.String("title", "API Server", "API title")
		version       = flag.String("version", "1.0.0", "API version")
		description   = flag.String("description", "Generated API documentation", "API description")
		useComponents = flag.Bool("components", false, "Emit shared partials as $ref components")
		help          = flag.Bool("h", false, "Show help")
	)
	flag.Parse()

	if *help {
		flag.PrintDefaults()
		return
	}

	var config Config

	if *configPath != "" {
		if err := loadConfig(*configPath, &config); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		config = Config{
			ViewsPath:     *viewsPath,
			RoutesPath:    *routesPath,
			OutputPath:    *outputPath,
			OutputFormat:  *outputFormat,
			ServerURL:     *serverURL,
			Title:         *title,
			Version:       *version,
			Description:   *description,
			UseComponents: *useComponents,
		}
	}

	if _, err := os.Stat(config.ViewsPath); os.IsNotExist(err) {
		log.Fatalf("Views path does not exist: %s", config.ViewsPath)
	}

	routeList, warnings, err := routes.Load(config.RoutesPath)
	if err != nil {
		log.Fatalf("Failed to load routes manifest: %v", err)
	}
	for _, warning := range warnings {
		fmt.Printf("WARNING: %s\n", warning)
	}

	compiler := analyzer.New(analyzer.FSLoader{}, config.ViewsPath)
	compiler.KeepPartials = config.UseComponents

	var compiled []generator.CompiledRoute
	for _, route := range routeList {
		templatePath := filepath.Join(config.ViewsPath, filepath.FromSlash(route.Template))
		result, err := compiler.Compile(templatePath)
		if err != nil {
			fmt.Printf("WARNING: %s %s: %v, skipped\n", route.Method, route.Path, err)
			continue
		}
		for _, missing := range result.Missing {
			fmt.Printf("WARNING: %s:%d: property %q has no annotation\n", route.Template, missing.Line, missing.PropName)
		}
		compiled = append(compiled, generator.CompiledRoute{
			Method:      route.Method,
			Path:        route.Path,
			Tags:        route.Tags,
			Description: route.Description,
			Result:      result,
		})
	}

	specGenerator := generator.New(generator.Config{
		Title:         config.Title,
		Version:       config.Version,
		Description:   config.Description,
		ServerURL:     config.ServerURL,
		UseComponents: config.UseComponents,
	})
	spec := specGenerator.Generate(compiled)
	if err := writeOutput(spec, config.OutputPath, config.OutputFormat); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	fmt.Printf("Generated %s from %d route(s)\n", config.OutputPath, len(compiled))
}

func loadConfig(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func writeOutput(spec interface{}, outputPath, format string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()
	switch format {
	case "json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(spec); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "yaml":
		encoder := yaml.NewEncoder(file)
		encoder.SetIndent(2)
		if err := encoder.Encode(spec); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml)", format)
	}

	return nil
}
