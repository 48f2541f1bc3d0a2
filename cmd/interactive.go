package cmd

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"

	"solana-m/client"
)

// runInteractive drives the main menu until the user exits.
func runInteractive(c *client.Client) error {
	for {
		menu := &survey.Select{
			Message: promptStyle.Render("Choose an action:"),
			Options: []string{
				"Show Earn Registry",
				"Show Wrap Vault",
				"Token Balance",
				"Wrap M",
				"Unwrap M",
				"Claim Fees",
				"Exit",
			},
			Help: "Use the arrow keys to navigate, and press Enter to select.",
		}

		var choice string
		if err := survey.AskOne(menu, &choice); err != nil {
			return err
		}

		switch choice {
		case "Show Earn Registry":
			if err := showEarnGlobal(c); err != nil {
				fmt.Println(warningStyle.Render(fmt.Sprintf("❌ %v", err)))
			}
		case "Show Wrap Vault":
			if err := showExtGlobal(c); err != nil {
				fmt.Println(warningStyle.Render(fmt.Sprintf("❌ %v", err)))
			}
		case "Token Balance":
			handleTokenBalance(c)
		case "Wrap M":
			handleWrap(c, true)
		case "Unwrap M":
			handleWrap(c, false)
		case "Claim Fees":
			handleClaimFees(c)
		case "Exit":
			fmt.Println(promptStyle.Render("Goodbye!"))
			return nil
		}
		fmt.Println()
	}
}

func askKey(message string) (solana.PublicKey, bool) {
	value := ""
	prompt := &survey.Input{Message: message}
	if err := survey.AskOne(prompt, &value, survey.WithValidator(survey.Required)); err != nil {
		return solana.PublicKey{}, false
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid address entered."))
		return solana.PublicKey{}, false
	}
	return key, true
}

func handleTokenBalance(c *client.Client) {
	address, ok := askKey("Enter a mint or token account address:")
	if !ok {
		return
	}
	if err := showToken(c, address); err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("❌ %v", err)))
	}
}

func handleWrap(c *client.Client, wrap bool) {
	from, ok := askKey("Enter the source token account:")
	if !ok {
		return
	}
	to, ok := askKey("Enter the destination token account:")
	if !ok {
		return
	}

	amountStr := ""
	amountPrompt := &survey.Input{Message: "Enter the amount in base units:"}
	survey.AskOne(amountPrompt, &amountStr, survey.WithValidator(survey.Required))
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid amount entered."))
		return
	}

	verb := "Wrap"
	send := c.Wrap
	if !wrap {
		verb = "Unwrap"
		send = c.Unwrap
	}
	if !confirm(fmt.Sprintf("%s %d from %s to %s?", verb, amount, from, to)) {
		return
	}
	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	receipt, err := send(from, to, amount)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ %s failed: %v", verb, err)))
		return
	}
	printReceipt(fmt.Sprintf("%sped %d", verb, amount), receipt)
}

func handleClaimFees(c *client.Client) {
	recipient, ok := askKey("Enter the wrapped M account receiving the fees:")
	if !ok {
		return
	}
	receipt, err := c.ClaimFees(recipient)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Fee claim failed: %v", err)))
		return
	}
	printReceipt("Fees claimed", receipt)
}
