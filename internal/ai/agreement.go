package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/utils"
)

var ErrEmptyCompletion = errors.New("agreement generator returned no text")

const systemPrompt = "You draft short, plain-language rental agreements between two private " +
	"individuals renting an item through an online marketplace. Use numbered sections. " +
	"Do not invent terms that are not given. Output only the agreement text."

// AgreementInput is everything the prompt is built from.
type AgreementInput struct {
	Rental          domain.Rental
	ItemTitle       string
	ItemDescription string
	OwnerName       string
	RenterName      string
}

type AgreementGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewAgreementGenerator(apiKey, model string) *AgreementGenerator {
	return newAgreementGenerator(openai.DefaultConfig(apiKey), model)
}

func newAgreementGenerator(cfg openai.ClientConfig, model string) *AgreementGenerator {
	return &AgreementGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   1500,
		temperature: 0.2,
	}
}

// Generate makes a single completion call. There is no retry; a failure is
// reported to the caller, who can ask again.
func (g *AgreementGenerator) Generate(ctx context.Context, in AgreementInput) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(in)},
		},
	}

	logger.ExternalServiceCall("openai", "chat.completions", "rentalID", in.Rental.ID, "model", g.model)
	resp, err := g.client.CreateChatCompletion(ctx, req)
	logger.ExternalServiceResult("openai", "chat.completions", err, "rentalID", in.Rental.ID)
	if err != nil {
		return "", fmt.Errorf("generate agreement: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// BuildPrompt renders the rental terms the agreement must reflect.
func BuildPrompt(in AgreementInput) string {
	r := in.Rental
	var b strings.Builder
	b.WriteString("Draft a rental agreement with these terms.\n\n")
	fmt.Fprintf(&b, "Owner: %s\n", in.OwnerName)
	fmt.Fprintf(&b, "Renter: %s\n", in.RenterName)
	fmt.Fprintf(&b, "Item: %s\n", in.ItemTitle)
	if in.ItemDescription != "" {
		fmt.Fprintf(&b, "Item description: %s\n", in.ItemDescription)
	}
	fmt.Fprintf(&b, "Rental period: %s to %s (%d day(s), returned by the end date)\n",
		r.StartDate, r.EndDate, r.TotalDays)
	fmt.Fprintf(&b, "Price per day: %s\n", utils.FormatCents(r.PricePerDayCents))
	fmt.Fprintf(&b, "Subtotal: %s\n", utils.FormatCents(r.SubtotalCents))
	fmt.Fprintf(&b, "Service fee: %s\n", utils.FormatCents(r.ServiceFeeCents))
	fmt.Fprintf(&b, "Insurance fee: %s\n", utils.FormatCents(r.InsuranceFeeCents))
	if r.DeliveryFeeCents > 0 {
		fmt.Fprintf(&b, "Delivery fee: %s\n", utils.FormatCents(r.DeliveryFeeCents))
	}
	fmt.Fprintf(&b, "Total paid: %s\n", utils.FormatCents(r.TotalAmountCents))
	fmt.Fprintf(&b, "Security deposit: %s\n", utils.FormatCents(r.SecurityDepositCents))
	fmt.Fprintf(&b, "Late fee per day: %s\n", utils.FormatCents(r.LateFeePerDayCents))

	switch r.DeliveryMethod {
	case domain.DeliveryMethodDelivery:
		fmt.Fprintf(&b, "Handover: delivered to %s\n", r.DeliveryAddress)
	default:
		b.WriteString("Handover: renter picks up from the owner\n")
	}
	if r.SpecialInstructions != "" {
		fmt.Fprintf(&b, "Special instructions: %s\n", r.SpecialInstructions)
	}

	b.WriteString("\nInclude sections for condition on handover, care and use, late return, " +
		"damage and deposit deductions, cancellation, and signatures of both parties.")
	return b.String()
}
