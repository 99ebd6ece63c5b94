package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/pkg/signature"
)

type signOptions struct {
	template  string
	vendor    string
	secret    string
	amount    string
	profileID string
	phone     string
	raw       bool
	payload   bool
}

func newSignCommand() *cobra.Command {
	o := &signOptions{}
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute a gateway signature",
		Long: `Compute the SHA-256 signature of one gateway template, e.g. to check a webhook
a gateway claims to have sent:

  paytool sign -t easypay.webhook --amount 180.00 --phone 01030265229 --secret $SECRET`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSign(cmd, o)
		},
	}

	cmd.Flags().StringVarP(&o.template, "template", "t", gateway.EasyPayWebhookTemplate.Name, "Template (easypay.invoice, easypay.webhook, shakeout.invoice, shakeout.webhook)")
	cmd.Flags().StringVar(&o.vendor, "vendor", "", "Vendor code")
	cmd.Flags().StringVar(&o.secret, "secret", "", "Secret key")
	cmd.Flags().StringVar(&o.amount, "amount", "", "Amount")
	cmd.Flags().StringVar(&o.profileID, "profile-id", "", "Customer profile id (the order id)")
	cmd.Flags().StringVar(&o.phone, "phone", "", "Customer phone")
	cmd.Flags().BoolVar(&o.raw, "raw-amount", false, "Sign the amount exactly as given instead of formatting it to two decimals")
	cmd.Flags().BoolVar(&o.payload, "show-payload", false, "Also print the string that gets hashed")

	return cmd
}

func runSign(cmd *cobra.Command, o *signOptions) error {
	t, ok := gateway.TemplateByName(o.template)
	if !ok {
		return fmt.Errorf("unknown template %q", o.template)
	}

	amount := o.amount
	if amount != "" && !o.raw {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		amount = signature.FormatAmount(d)
	}

	values := signature.Values{}
	for f, v := range map[signature.Field]string{
		signature.FieldVendorCode: o.vendor,
		signature.FieldSecret:     o.secret,
		signature.FieldAmount:     amount,
		signature.FieldProfileID:  o.profileID,
		signature.FieldPhone:      o.phone,
	} {
		if v != "" {
			values[f] = v
		}
	}

	sig, err := signature.Compute(t, values)
	if err != nil {
		return err
	}
	if o.payload {
		payload, _ := t.Payload(values)
		fmt.Fprintf(cmd.OutOrStdout(), "payload:   %s\n", payload)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sig)
	return nil
}
