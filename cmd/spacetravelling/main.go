package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	st "github.com/eringen/spacetravelling"
	"github.com/eringen/spacetravelling/views"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile string
	siteCfg st.SiteConfig
)

var rootCmd = &cobra.Command{
	Use:   "spacetravelling",
	Short: "Space Travelling - a Prismic blog built with Go, Echo, and templ",
	Long: `spacetravelling serves a blog whose posts live in a Prismic repository.
Pages are pre-rendered at startup, regenerated in the background once they
are older than the revalidate interval, and previewable from the Prismic UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./spacetravelling.yaml)")
	rootCmd.AddCommand(serveCmd, buildCmd, pathsCmd, purgeCmd, versionCmd)
}

// initializeConfig layers .env, an optional config file and the environment
// into siteCfg. Environment variables win over the file.
func initializeConfig() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("site_name", "Space Travelling")
	v.SetDefault("site_url", "http://localhost:3000")
	v.SetDefault("site_description", "")
	v.SetDefault("addr", ":3000")
	v.SetDefault("database_path", "data/pages.db")
	v.SetDefault("prismic_endpoint", "")
	v.SetDefault("prismic_access_token", "")
	v.SetDefault("document_type", "posts")
	v.SetDefault("page_size", 1)
	v.SetDefault("revalidate", "5m")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("banner_proxy", true)
	v.SetDefault("banner_hosts", []string{"images.prismic.io"})
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("spacetravelling")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	siteCfg = st.SiteConfig{
		Name:          v.GetString("site_name"),
		URL:           v.GetString("site_url"),
		Description:   v.GetString("site_description"),
		Addr:          v.GetString("addr"),
		DatabasePath:  v.GetString("database_path"),
		LogLevel:      v.GetString("log_level"),
		APIEndpoint:   v.GetString("prismic_endpoint"),
		AccessToken:   v.GetString("prismic_access_token"),
		DocumentType:  v.GetString("document_type"),
		PageSize:      v.GetInt("page_size"),
		Revalidate:    v.GetDuration("revalidate"),
		SessionSecret: v.GetString("session_secret"),
		CookieSecure:  v.GetBool("cookie_secure"),
		BannerProxy:   v.GetBool("banner_proxy"),
		BannerHosts:   splitList(v.GetStringSlice("banner_hosts")),
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func newApp() *st.App {
	return st.New(siteCfg, views.Default())
}
