package fulfillment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/forgecraft/craftvault-backend/pkg/db/models"
	"github.com/forgecraft/craftvault-backend/pkg/enums"
	pkgerrors "github.com/forgecraft/craftvault-backend/pkg/errors"
)

// nickRe is the only shape of player name ever substituted into a server
// command. Anything else is rejected before templating, which closes the
// command injection path.
var nickRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)

// placeholderRe finds unresolved {name} tokens after substitution.
var placeholderRe = regexp.MustCompile(`\{[a-z_]+\}`)

// ValidNick reports whether the nick is safe to substitute into commands.
func ValidNick(nick string) bool {
	return nickRe.MatchString(nick)
}

// buildInput is everything command synthesis needs.
type buildInput struct {
	Product  models.Product
	Nick     string
	Quantity int
}

// BuildCommands produces the full command batch for one fulfillment.
func BuildCommands(input buildInput) ([]string, error) {
	if !ValidNick(input.Nick) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minecraft nick is not command-safe")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	switch input.Product.Kind {
	case enums.KindWhitelist:
		return buildWhitelist(input)
	case enums.KindItem:
		return buildItem(input)
	case enums.KindRank, enums.KindSubscription, enums.KindService, enums.KindCommand:
		return buildFromTemplates(input)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product kind %q", input.Product.Kind))
	}
}

func buildWhitelist(input buildInput) ([]string, error) {
	if hasTemplates(input.Product) {
		return buildFromTemplates(input)
	}
	return []string{"whitelist add " + input.Nick}, nil
}

func buildItem(input buildInput) ([]string, error) {
	if hasTemplates(input.Product) {
		return buildFromTemplates(input)
	}
	if len(input.Product.ItemsData) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product has neither command templates nor items_data")
	}

	commands := make([]string, 0, len(input.Product.ItemsData))
	for _, stack := range input.Product.ItemsData {
		if stack.MinecraftID == "" || stack.Amount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid items_data entry")
		}
		total := stack.Amount * input.Quantity
		commands = append(commands, fmt.Sprintf("give %s %s %d", input.Nick, stack.MinecraftID, total))
	}
	return commands, nil
}

func buildFromTemplates(input buildInput) ([]string, error) {
	if !hasTemplates(input.Product) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s product requires configured command templates", input.Product.Kind))
	}

	vars := map[string]string{
		"minecraft_nick": input.Nick,
		"quantity":       strconv.Itoa(input.Quantity),
	}
	if input.Product.SubscriptionDays != nil {
		vars["duration_days"] = strconv.Itoa(*input.Product.SubscriptionDays)
	}
	if len(input.Product.ItemsData) > 0 {
		vars["item_id"] = input.Product.ItemsData[0].MinecraftID
	}

	commands := make([]string, 0, len(input.Product.ExecutionConfig.Commands))
	for _, tmpl := range input.Product.ExecutionConfig.Commands {
		cmd := tmpl
		for name, value := range vars {
			cmd = strings.ReplaceAll(cmd, "{"+name+"}", value)
		}
		if leftover := placeholderRe.FindString(cmd); leftover != "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("unresolved placeholder %s in command template", leftover))
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}

func hasTemplates(product models.Product) bool {
	return product.ExecutionConfig != nil && len(product.ExecutionConfig.Commands) > 0
}
