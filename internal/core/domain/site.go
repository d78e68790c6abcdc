package domain

// HTMLSection is a titled block of public site text.
type HTMLSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Prayer struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	MemorialPrayer string `json:"memorialPrayer"`
}

type HeroContent struct {
	Headline           string `json:"headline"`
	IntroParagraph     string `json:"introParagraph"`
	BackgroundImageURL string `json:"backgroundImageUrl"`
	LogoURL            string `json:"logoImage,omitempty"`
	HeroBackgroundURL  string `json:"heroBackgroundImage,omitempty"`
}

type FooterContent struct {
	Address           string `json:"address"`
	PhoneNumber       string `json:"phoneNumber"`
	Email             string `json:"email"`
	OfficeHours       string `json:"officeHours"`
	WebsiteLink       string `json:"websiteLink"`
	BankAccountNumber string `json:"bankAccountNumber"`
}

// SiteContent is the editable public site content. Image data is referenced
// by URL; the blob pipeline lives outside this module.
type SiteContent struct {
	LogoURL             string        `json:"logoImage,omitempty"`
	Hero                HeroContent   `json:"homepageHero"`
	Footer              FooterContent `json:"footer"`
	GravesDeclaration   HTMLSection   `json:"gravesDeclaration"`
	Prayer              Prayer        `json:"prayerForTheDeceased"`
	CemeteryInformation HTMLSection   `json:"cemeteryInformation"`
}
