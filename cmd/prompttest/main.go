// Command prompttest assembles a mapping prompt from local config and
// framework data and prints it, so prompt changes can be reviewed
// without calling the model.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/frameworks"
	"portfolio-mapper-backend/internal/mappings"
)

func main() {
	var (
		roleID        = flag.String("role", "", "role id from roles.yaml (required)")
		levelKey      = flag.String("level", "", "academic level key (defaults to the role's default)")
		codes         = flag.String("frameworks", "", "comma-separated framework codes (defaults to all allowed)")
		reflectionArg = flag.String("reflection", "", "path to a file holding the reflection text (required)")
		safetyOnly    = flag.Bool("safety", false, "print the safety screening prompt instead")
		frameworksDir = flag.String("frameworks-dir", "frameworks", "framework YAML directory")
		configDir     = flag.String("config-dir", "config", "config YAML directory")
	)
	flag.Parse()

	if *roleID == "" || *reflectionArg == "" {
		flag.Usage()
		os.Exit(2)
	}

	reflection, err := os.ReadFile(*reflectionArg)
	if err != nil {
		log.Fatalf("read reflection: %v", err)
	}

	catalog, err := config.LoadCatalog(*configDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	library, err := frameworks.LoadLibrary(*frameworksDir)
	if err != nil {
		log.Fatalf("load frameworks: %v", err)
	}

	if *safetyOnly {
		prompt, err := mappings.AssembleSafetyPrompt(string(reflection), catalog.Prompts[config.PromptSafetyCheck])
		if err != nil {
			log.Fatalf("assemble safety prompt: %v", err)
		}
		fmt.Println(prompt)
		return
	}

	role, ok := catalog.Roles[*roleID]
	if !ok {
		log.Fatalf("unknown role %q", *roleID)
	}
	level := config.LevelKey(*levelKey)
	if level == "" {
		level = role.DefaultAcademicLevel
	}
	if !config.ValidLevelKey(level) {
		log.Fatalf("unknown academic level %q", *levelKey)
	}

	allowed := frameworks.ResolveAllowed(role.DisplayName, role.AllowedFrameworkCodes, library)
	selected := frameworks.SortedCodes(allowed)
	if *codes != "" {
		selected = nil
		for _, code := range strings.Split(*codes, ",") {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if _, ok := allowed[code]; !ok {
				log.Fatalf("framework %q is not available for role %q", code, *roleID)
			}
			selected = append(selected, code)
		}
	}
	required := frameworks.ResolveRequired(selected, library)

	chosen := make(map[string]*frameworks.FrameworkFile, len(required))
	for _, code := range required {
		chosen[code] = library[code]
	}

	prompt, err := mappings.AssembleAnalysisPrompt(mappings.AnalysisPromptInput{
		Role:       role,
		Level:      catalog.Levels[level],
		LevelKey:   level,
		Reflection: string(reflection),
		Frameworks: chosen,
		Prompt:     catalog.Prompts[config.PromptPortfolioAnalysis],
		Catalog:    catalog,
	})
	if err != nil {
		log.Fatalf("assemble analysis prompt: %v", err)
	}
	fmt.Println(prompt)
}
