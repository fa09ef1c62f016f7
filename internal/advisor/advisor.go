// Package advisor asks a hosted language model for product recommendations
// and runs the storefront chat assistant.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"vapestore/internal/model"

	"github.com/rs/zerolog"
)

// HandoffMarker ends a model reply that asks for a human.
const HandoffMarker = "[HANDOFF]"

const (
	maxRecommendations = 3
	handoffGreeting    = "Hola Vape del Este, necesito ayuda con lo siguiente: "
)

// Model is the hosted language model.
type Model interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Stream(ctx context.Context, req GenerateRequest, onChunk func(string) error) error
}

// Answers are the customer's questionnaire answers.
type Answers struct {
	SmokingHabit string `json:"smokingHabit"`
	VapingGoal   string `json:"vapingGoal"`
	Preference   string `json:"preference"`
}

// Recommendation is one suggested product.
type Recommendation struct {
	ProductName string `json:"productName"`
	ProductType string `json:"productType"`
	Reasoning   string `json:"reasoning"`
	ImageURL    string `json:"imageUrl"`
}

// Message is one prior chat turn. Role is "user" or "model".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatResult is what a chat turn produced.
type ChatResult struct {
	Text        string `json:"text"`
	Handoff     bool   `json:"handoff"`
	Summary     string `json:"summary,omitempty"`
	WhatsAppURL string `json:"whatsappUrl,omitempty"`
}

// Advisor produces recommendations and chat replies.
type Advisor struct {
	model         Model
	handoffNumber string
	logger        zerolog.Logger
}

// New creates an Advisor. handoffNumber is the WhatsApp number humans answer on.
func New(m Model, handoffNumber string, logger zerolog.Logger) *Advisor {
	return &Advisor{
		model:         m,
		handoffNumber: handoffNumber,
		logger:        logger.With().Str("component", "advisor").Logger(),
	}
}

var recommendationSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"productName": map[string]any{"type": "STRING"},
		"productType": map[string]any{"type": "STRING"},
		"reasoning":   map[string]any{"type": "STRING"},
		"imageUrl":    map[string]any{"type": "STRING"},
	},
	"required": []string{"productName", "productType", "reasoning", "imageUrl"},
}

// Recommend returns up to three products for the answers. Only entries that
// name a supplied product exactly, with its exact image, are kept.
func (a *Advisor) Recommend(ctx context.Context, answers Answers, products []model.Product) ([]Recommendation, error) {
	prompt := fmt.Sprintf(`Sos el asesor de vapeo de la tienda online "Vape del Este". Recomendá exactamente 3 productos de la lista que mejor se adapten al cliente.

Cliente:
- Hábito de fumar: %q
- Objetivo con el vapeo: %q
- Preferencia de dispositivo: %q

Productos disponibles:
%s

Si el cliente quiere dejar de fumar, priorizá los productos sin nicotina. Si fuma mucho, priorizá los de más puffs.
Para cada recomendación indicá el nombre exacto, la categoría, una razón breve (máximo 25 palabras) y la URL de imagen exacta de la lista.`,
		answers.SmokingHabit, answers.VapingGoal, answers.Preference, productList(products, true))

	text, err := a.model.Generate(ctx, GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   map[string]any{"type": "ARRAY", "items": recommendationSchema},
		},
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to get recommendations")
		return nil, model.Upstream("recommend", "The advisor is not answering right now, please try again later", err)
	}

	var recs []Recommendation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &recs); err != nil {
		a.logger.Error().Err(err).Str("response", text).Msg("failed to decode recommendations")
		return nil, model.Upstream("recommend", "The advisor is not answering right now, please try again later", err)
	}

	kept := grounded(recs, products)
	if len(kept) > maxRecommendations {
		kept = kept[:maxRecommendations]
	}
	if len(kept) == 0 {
		a.logger.Warn().Int("returned", len(recs)).Msg("no recommendation matched the catalog")
		return nil, model.Upstream("recommend", "The advisor could not find a match, please try again", nil)
	}
	return kept, nil
}

// Upsell suggests one product that is not in the cart. It returns nil
// when there is nothing to suggest or the model fails.
func (a *Advisor) Upsell(ctx context.Context, cartNames []string, products []model.Product) *Recommendation {
	inCart := make(map[string]bool, len(cartNames))
	for _, n := range cartNames {
		inCart[n] = true
	}
	candidates := make([]model.Product, 0, len(products))
	for _, p := range products {
		if !inCart[p.Name] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	cart := strings.Join(cartNames, ", ")
	if cart == "" {
		cart = "El carrito está vacío"
	}
	prompt := fmt.Sprintf(`Sos el asesor de ventas de "Vape del Este". Sugerí UN producto adicional que complemente el carrito del cliente.

Carrito: %s

Productos disponibles (ninguno está en el carrito):
%s

Indicá el nombre exacto, la categoría, una razón breve (máximo 25 palabras) y la URL de imagen exacta. Si no hay una buena sugerencia devolvé {}.`,
		cart, productList(candidates, true))

	text, err := a.model.Generate(ctx, GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   recommendationSchema,
		},
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("upsell suggestion failed")
		return nil
	}

	text = strings.TrimSpace(text)
	if text == "" || text == "{}" {
		return nil
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		a.logger.Warn().Err(err).Msg("upsell suggestion was not valid JSON")
		return nil
	}
	kept := grounded([]Recommendation{rec}, candidates)
	if len(kept) == 0 {
		a.logger.Debug().Str("product", rec.ProductName).Msg("upsell suggestion not in catalog")
		return nil
	}
	return &kept[0]
}

// errHandoff stops the model stream once the marker is seen.
var errHandoff = errors.New("handoff requested")

// Chat sends message after history and streams the reply through onDelta.
// The handoff marker is never forwarded and ends the reply.
func (a *Advisor) Chat(ctx context.Context, products []model.Product, history []Message, message string, onDelta func(string) error) (*ChatResult, error) {
	contents := make([]Content, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == "model" || m.Role == "bot" {
			role = "model"
		}
		contents = append(contents, Content{Role: role, Parts: []Part{{Text: m.Text}}})
	}
	contents = append(contents, Content{Role: "user", Parts: []Part{{Text: message}}})

	req := GenerateRequest{
		SystemInstruction: &Content{Parts: []Part{{Text: chatInstruction(products)}}},
		Contents:          contents,
	}

	var (
		reply   strings.Builder
		scanner markerScanner
	)
	emit := func(s string) error {
		if s == "" {
			return nil
		}
		reply.WriteString(s)
		return onDelta(s)
	}

	err := a.model.Stream(ctx, req, func(chunk string) error {
		out, found := scanner.feed(chunk)
		if err := emit(out); err != nil {
			return err
		}
		if found {
			return errHandoff
		}
		return nil
	})
	handoff := errors.Is(err, errHandoff)
	if err != nil && !handoff {
		a.logger.Error().Err(err).Msg("chat stream failed")
		return nil, model.Upstream("chat", "The assistant is not answering right now, please try again later", err)
	}
	if !handoff {
		if err := emit(scanner.flush()); err != nil {
			return nil, err
		}
	}

	result := &ChatResult{Text: reply.String(), Handoff: handoff}
	if handoff {
		result.Summary = strings.TrimSpace(result.Text)
		result.WhatsAppURL = a.HandoffURL(result.Summary)
		a.logger.Info().Msg("chat handed off to a human")
	}
	return result, nil
}

// HandoffURL builds the WhatsApp link carrying the conversation summary.
func (a *Advisor) HandoffURL(summary string) string {
	text := strings.ReplaceAll(url.QueryEscape(handoffGreeting+summary), "+", "%20")
	return "https://wa.me/" + a.handoffNumber + "?text=" + text
}

// markerScanner finds HandoffMarker in a stream of chunks. It holds back any
// tail that could be the start of the marker.
type markerScanner struct {
	pending string
}

// feed returns the text that is safe to forward and whether the marker was found.
func (s *markerScanner) feed(chunk string) (string, bool) {
	s.pending += chunk
	if i := strings.Index(s.pending, HandoffMarker); i >= 0 {
		out := s.pending[:i]
		s.pending = ""
		return out, true
	}
	keep := partialMarker(s.pending)
	out := s.pending[:len(s.pending)-keep]
	s.pending = s.pending[len(s.pending)-keep:]
	return out, false
}

// flush returns whatever was held back.
func (s *markerScanner) flush() string {
	out := s.pending
	s.pending = ""
	return out
}

// partialMarker returns the length of the longest suffix of s that is a
// proper prefix of HandoffMarker.
func partialMarker(s string) int {
	n := len(HandoffMarker) - 1
	if n > len(s) {
		n = len(s)
	}
	for ; n > 0; n-- {
		if strings.HasPrefix(HandoffMarker, s[len(s)-n:]) {
			return n
		}
	}
	return 0
}

func grounded(recs []Recommendation, products []model.Product) []Recommendation {
	known := make(map[string]string, len(products))
	for _, p := range products {
		known[p.Name] = p.ImageURL
	}
	kept := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if img, ok := known[r.ProductName]; ok && img == r.ImageURL {
			kept = append(kept, r)
		}
	}
	return kept
}

func productList(products []model.Product, withDetail bool) string {
	var sb strings.Builder
	for _, p := range products {
		fmt.Fprintf(&sb, "- %s (Categoría: %s, Precio: %s", p.Name, p.Category, p.Price.Display())
		if withDetail {
			fmt.Fprintf(&sb, ", Features: %s, Imagen: %s", strings.Join(p.Features, ", "), p.ImageURL)
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

func chatInstruction(products []model.Product) string {
	return `Sos EsteBot, el asistente de ventas de "Vape del Este", una tienda online de vapes en Uruguay.
Ayudás con preguntas sobre productos, envíos y recomendaciones.

Datos de la tienda:
- Edad mínima para comprar: 18 años.
- Envíos a todo Uruguay; costos y tiempos varían.
- Pagos con tarjeta a través de MercadoPago.
- Productos:
` + productList(products, false) + `
Reglas:
1. Tono amable, cercano y profesional. Respuestas breves.
2. Si no sabés algo, decilo y ofrecé hablar con una persona.
3. No des consejos médicos.

Traspaso a una persona: si el cliente está frustrado, tiene un problema con un pedido o pide hablar con alguien, resumí su consulta en una frase y terminá el mensaje con ` + HandoffMarker
}
