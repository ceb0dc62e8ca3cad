package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"wechat_article_workflow/generator"
	"wechat_article_workflow/publisher"
	"wechat_article_workflow/search"
	"wechat_article_workflow/server"
)

var verbose bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.json", "path to config.json")
	articlePath := flag.String("article", "", "path to the source article/transcript text file")
	metadataPath := flag.String("metadata", "", "path to optional metadata json")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	enrich := flag.Bool("enrich", false, "enable web-search enrichment before outlining")
	noTranscript := flag.Bool("no-transcript", false, "disable the transcript branch")
	factCheck := flag.Bool("fact-check", false, "run the fact checker after review (audit only)")
	summarize := flag.Bool("summarize", false, "condense very long source articles before outlining")
	publish := flag.Bool("publish", false, "upload the generated article as a WeChat draft")
	cover := flag.String("cover", "", "path to cover image (required with --publish)")
	author := flag.String("author", "", "author name for the WeChat draft")
	flag.BoolVar(&verbose, "v", false, "enable info logs")
	flag.Parse()

	cfg, err := publisher.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := generator.DefaultOptions()
	opts.Transcript = !*noTranscript
	opts.FactCheck = *factCheck
	opts.Summarize = *summarize
	if *enrich {
		opts.Enricher = buildSearcher(cfg)
	}

	wf, err := generator.NewWorkflow(llm, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Web server mode
	if *serve {
		srv, err := server.New(wf)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if listen == "" {
			listen = ":8080"
		}
		log.Printf("Starting web server on %s", listen)
		if err := srv.Routes().Run(listen); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if *articlePath == "" {
		fmt.Fprintln(os.Stderr, "--article is required (or use --serve)")
		os.Exit(1)
	}

	articleBytes, err := os.ReadFile(*articlePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var md *generator.Metadata
	if *metadataPath != "" {
		raw, err := os.ReadFile(*metadataPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		md = &generator.Metadata{}
		if err := json.Unmarshal(raw, md); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	log.Printf("[cli] generating article from %s", *articlePath)
	res, err := wf.Run(ctx, string(articleBytes), md)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Printf("[cli] generated %q in %s (%d paragraphs)", res.Outline.Title, res.Elapsed, len(res.Paragraphs))

	if !*publish {
		fmt.Println(res.FinalArticle)
		return
	}

	draft, err := generator.NewDraft(res)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	p, err := publisher.New(cfg, nil, verbose, log.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	mediaID, err := p.PublishDraft(ctx, draft, *cover, *author)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Printf("[cli] publish done media_id=%s", mediaID)
	fmt.Println(mediaID)
}

func buildLLM(cfg publisher.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	}
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}

	switch cfg.LLM.Provider {
	case "openai":
		if settings.APIKey == "" {
			settings.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		if settings.APIKey == "" {
			settings.APIKey = os.Getenv("DEEPSEEK_API_KEY")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "cohere":
		if settings.APIKey == "" {
			settings.APIKey = os.Getenv("COHERE_API_KEY")
		}
		return generator.NewCohereLLMFromConfig(settings)
	case "mock":
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

// buildSearcher 装配检索客户端；配置了 redis_addr 就带上查询缓存。
func buildSearcher(cfg publisher.Config) generator.Searcher {
	var opts []search.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts = append(opts, search.WithCache(rdb, 0))
	}
	return search.New(opts...)
}
