package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vatbridge-dev/vatbridge/internal/fraud"
	"github.com/vatbridge-dev/vatbridge/internal/model"
	"github.com/vatbridge-dev/vatbridge/internal/vat"
)

// Config represents the top-level vatbridge.yaml configuration.
type Config struct {
	Business    BusinessConfig    `yaml:"business"`
	Application ApplicationConfig `yaml:"application"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Boxes       BoxesConfig       `yaml:"boxes"`
	Accounts    AccountsConfig    `yaml:"accounts"`
	Identity    IdentityConfig    `yaml:"identity"`
	Token       TokenConfig       `yaml:"token"`
	Audit       AuditConfig       `yaml:"audit"`
	LogLevel    string            `yaml:"log_level,omitempty"`
}

// BusinessConfig identifies the taxpayer.
type BusinessConfig struct {
	Name string `yaml:"name"`
	VRN  string `yaml:"vrn"` // VAT registration number
}

// ApplicationConfig carries the registered OAuth2 application credentials
// and which HMRC environment to talk to.
type ApplicationConfig struct {
	Profile      string `yaml:"profile"` // prod, test or local
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LedgerConfig selects the accounting book backend.
type LedgerConfig struct {
	Kind string `yaml:"kind"` // gnucash or csv
	File string `yaml:"file"`
}

// BoxMapping binds one return box to a ledger account subtree.
type BoxMapping struct {
	Account string `yaml:"account"`
	Negate  bool   `yaml:"negate,omitempty"`
}

// BoxesConfig maps the nine return boxes to account locators. Box
// relationships (box 3 = box 1 + box 2) are expressed by nesting the
// accounts, not by formulas here.
type BoxesConfig struct {
	VATDueSales        BoxMapping `yaml:"vat_due_sales"`
	VATDueAcquisitions BoxMapping `yaml:"vat_due_acquisitions"`
	TotalVATDue        BoxMapping `yaml:"total_vat_due"`
	VATReclaimed       BoxMapping `yaml:"vat_reclaimed"`
	NetVATDue          BoxMapping `yaml:"net_vat_due"`
	SalesExVAT         BoxMapping `yaml:"sales_ex_vat"`
	PurchasesExVAT     BoxMapping `yaml:"purchases_ex_vat"`
	GoodsSuppliedExVAT BoxMapping `yaml:"goods_supplied_ex_vat"`
	AcquisitionsExVAT  BoxMapping `yaml:"acquisitions_ex_vat"`
}

// AccountsConfig names the accounts an external bill poster uses when
// recording the filed return in the ledger.
type AccountsConfig struct {
	Liabilities string `yaml:"liabilities,omitempty"`
	Bills       string `yaml:"bills,omitempty"`
}

// IdentityConfig is the device identity reported in fraud prevention
// headers.
type IdentityConfig struct {
	DeviceID           string `yaml:"device_id"`
	OSFamily           string `yaml:"os_family"`
	OSVersion          string `yaml:"os_version"`
	DeviceManufacturer string `yaml:"device_manufacturer"`
	DeviceModel        string `yaml:"device_model"`
	User               string `yaml:"user"`
	LocalIP            string `yaml:"local_ip"`
	MACAddress         string `yaml:"mac_address"`
}

// TokenConfig locates the persisted token store.
type TokenConfig struct {
	File string `yaml:"file"`
}

// AuditConfig locates the submission log.
type AuditConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Load reads a vatbridge.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config preloaded with the conventional GnuCash VAT
// account layout and the identity this machine can detect. Manufacturer and
// model cannot be probed portably and are left for the operator.
func Default(businessName, vrn string) *Config {
	id := fraud.DetectIdentity()
	return &Config{
		Business: BusinessConfig{Name: businessName, VRN: vrn},
		Application: ApplicationConfig{
			Profile:      "prod",
			ClientID:     "<CLIENT ID>",
			ClientSecret: "<SECRET>",
		},
		Ledger: LedgerConfig{Kind: "gnucash", File: "accounts/accounts.gnucash"},
		Boxes: BoxesConfig{
			VATDueSales:        BoxMapping{Account: "VAT:Output:Sales"},
			VATDueAcquisitions: BoxMapping{Account: "VAT:Output:EU"},
			TotalVATDue:        BoxMapping{Account: "VAT:Output"},
			VATReclaimed:       BoxMapping{Account: "VAT:Input"},
			NetVATDue:          BoxMapping{Account: "VAT"},
			SalesExVAT:         BoxMapping{Account: "Income:Sales", Negate: true},
			PurchasesExVAT:     BoxMapping{Account: "Expenses:VAT Purchases"},
			GoodsSuppliedExVAT: BoxMapping{Account: "Income:Sales:EU:Goods", Negate: true},
			AcquisitionsExVAT:  BoxMapping{Account: "Expenses:VAT Purchases:EU Reverse VAT"},
		},
		Accounts: AccountsConfig{
			Liabilities: "VAT:Liabilities",
			Bills:       "Accounts Payable",
		},
		Identity: IdentityConfig{
			DeviceID:           id.DeviceID,
			OSFamily:           id.OSFamily,
			OSVersion:          id.OSVersion,
			DeviceManufacturer: id.DeviceManufacturer,
			DeviceModel:        id.DeviceModel,
			User:               id.User,
			LocalIP:            id.LocalIP,
			MACAddress:         id.MACAddress,
		},
		Token:    TokenConfig{File: "auth.json"},
		Audit:    AuditConfig{Dir: "logs"},
		LogLevel: "info",
	}
}

// Mappings converts the nine configured boxes into vat.BoxMapping entries.
func (c *Config) Mappings() []vat.BoxMapping {
	boxes := []struct {
		box model.Box
		m   BoxMapping
	}{
		{model.Box1, c.Boxes.VATDueSales},
		{model.Box2, c.Boxes.VATDueAcquisitions},
		{model.Box3, c.Boxes.TotalVATDue},
		{model.Box4, c.Boxes.VATReclaimed},
		{model.Box5, c.Boxes.NetVATDue},
		{model.Box6, c.Boxes.SalesExVAT},
		{model.Box7, c.Boxes.PurchasesExVAT},
		{model.Box8, c.Boxes.GoodsSuppliedExVAT},
		{model.Box9, c.Boxes.AcquisitionsExVAT},
	}
	out := make([]vat.BoxMapping, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, vat.BoxMapping{Box: b.box, Account: b.m.Account, Negate: b.m.Negate})
	}
	return out
}

// FraudIdentity converts the configured identity for the header builder.
func (c *Config) FraudIdentity() fraud.Identity {
	return fraud.Identity{
		DeviceID:           c.Identity.DeviceID,
		OSFamily:           c.Identity.OSFamily,
		OSVersion:          c.Identity.OSVersion,
		DeviceManufacturer: c.Identity.DeviceManufacturer,
		DeviceModel:        c.Identity.DeviceModel,
		User:               c.Identity.User,
		LocalIP:            c.Identity.LocalIP,
		MACAddress:         c.Identity.MACAddress,
	}
}
