package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartfarm/advisor/internal/domain"
	"github.com/spf13/cobra"
)

func newHealthCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := s.client.request(cmd.Context(), http.MethodGet, "/health", nil)
			if err != nil {
				return err
			}
			var health domain.HealthResponse
			if err := decode(body, &health); err != nil {
				return err
			}
			return s.out.print(health, humanHealth(health))
		},
	}
}

func newCapabilitiesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show the active model provider, languages and activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := s.client.request(cmd.Context(), http.MethodGet, "/api/capabilities", nil)
			if err != nil {
				return err
			}
			var caps domain.Capabilities
			if err := decode(body, &caps); err != nil {
				return err
			}
			return s.out.print(caps, humanCapabilities(caps))
		},
	}
}

func newAnalyzeCmd(s *session) *cobra.Command {
	var (
		imagePath string
		cropType  string
		language  string
		latitude  float64
		longitude float64
	)

	cmd := &cobra.Command{
		Use:   "analyze --image PATH",
		Short: "Detect crop disease from a photo",
		Long: `Upload a crop photo for disease detection and a treatment plan.

Examples:
  # Analyze a maize leaf and get the summary in Swahili
  smartfarm analyze --image leaf.jpg --crop maize --language sw

  # Machine-readable output
  smartfarm analyze --image leaf.jpg -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(imagePath) == "" {
				return usageErrorf("missing_image", "analyze requires --image")
			}
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return usageErrorf("invalid_image", "read image: %v", err)
			}

			fields := map[string]string{
				"cropType": strings.TrimSpace(cropType),
				"language": strings.TrimSpace(language),
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				location, err := json.Marshal(domain.Location{Latitude: latitude, Longitude: longitude})
				if err != nil {
					return err
				}
				fields["location"] = string(location)
			}

			body, err := s.client.upload(cmd.Context(), "/api/analyze-disease", "image", filepath.Base(imagePath), data, fields)
			if err != nil {
				return err
			}
			var result domain.AdvisoryResult
			if err := decode(body, &result); err != nil {
				return err
			}
			return s.out.print(result, humanAdvisory(result))
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Path to a JPEG, PNG, GIF or WebP photo")
	cmd.Flags().StringVar(&cropType, "crop", "", "Crop type, e.g. maize")
	cmd.Flags().StringVarP(&language, "language", "l", domain.BaseLanguage, "Summary language code (en, sw, ha, am, yo)")
	cmd.Flags().Float64Var(&latitude, "lat", 0, "Field latitude")
	cmd.Flags().Float64Var(&longitude, "lon", 0, "Field longitude")
	return cmd
}

func newChatCmd(s *session) *cobra.Command {
	var (
		language     string
		farmSize     string
		crops        []string
		farmLocation string
	)

	cmd := &cobra.Command{
		Use:   "chat MESSAGE...",
		Short: "Ask the farming assistant a question",
		Long: `Ask the farming assistant a question. While the server is unreachable the
question is queued and sent on the next "queue flush" or "watch".

Examples:
  smartfarm chat "When should I plant maize?" --crops maize,beans --farm-size "2 acres"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return usageErrorf("missing_message", "chat requires a message")
			}

			req := domain.ChatRequest{Message: message, Language: strings.TrimSpace(language)}
			if farmSize != "" || len(crops) > 0 || farmLocation != "" {
				req.FarmerProfile = &domain.FarmerProfile{
					FarmSize: strings.TrimSpace(farmSize),
					Crops:    crops,
					Location: strings.TrimSpace(farmLocation),
				}
			}

			body, err := s.client.postOrQueue(cmd.Context(), "/api/chat", req)
			if err != nil {
				return err
			}
			var resp domain.ChatResponse
			if err := decode(body, &resp); err != nil {
				return err
			}
			return s.out.print(resp, humanChat(resp))
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Reply language code")
	cmd.Flags().StringVar(&farmSize, "farm-size", "", "Farm size, e.g. \"2 acres\"")
	cmd.Flags().StringSliceVar(&crops, "crops", nil, "Crops grown, comma separated")
	cmd.Flags().StringVar(&farmLocation, "farm-location", "", "Farm location, e.g. a county or district")
	return cmd
}

func newWeatherCmd(s *session) *cobra.Command {
	var (
		latitude  float64
		longitude float64
		activity  string
		cropType  string
	)

	cmd := &cobra.Command{
		Use:   "weather --lat LAT --lon LON --activity ACTIVITY",
		Short: "Time a farm activity against the forecast",
		Long: `Get a recommendation for when to carry out a farm activity.

Activities: planting, fertilizing, spraying, harvesting.

Examples:
  smartfarm weather --lat -1.29 --lon 36.82 --activity spraying --crop tomato`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") || strings.TrimSpace(activity) == "" {
				return usageErrorf("missing_location_or_activity", "weather requires --lat, --lon and --activity")
			}

			req := domain.WeatherAdvisoryRequest{
				Location: &domain.Location{Latitude: latitude, Longitude: longitude},
				CropType: strings.TrimSpace(cropType),
				Activity: strings.ToLower(strings.TrimSpace(activity)),
			}
			body, err := s.client.postOrQueue(cmd.Context(), "/api/weather-advisory", req)
			if err != nil {
				return err
			}
			var advice domain.WeatherAdvisory
			if err := decode(body, &advice); err != nil {
				return err
			}
			return s.out.print(advice, humanWeather(advice))
		},
	}

	cmd.Flags().Float64Var(&latitude, "lat", 0, "Field latitude")
	cmd.Flags().Float64Var(&longitude, "lon", 0, "Field longitude")
	cmd.Flags().StringVar(&activity, "activity", "", "Activity to plan")
	cmd.Flags().StringVar(&cropType, "crop", "", "Crop type")
	return cmd
}

func decode(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
