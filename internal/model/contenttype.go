// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ContentType is an entry of the prompt selector.
type ContentType struct {
	Name    string
	Samples []string
}

// ContentTypes is the catalog offered in the dashboard, in display order.
var ContentTypes = []ContentType{
	{
		Name: "Social Media Post",
		Samples: []string{
			"Write a short, catchy social media post promoting a new Moroccan Amlou product in 2–3 sentences.",
			"Create an Instagram caption highlighting the health benefits of Amlou in a fun way.",
			"Generate a witty Facebook post announcing our weekend Amlou discount.",
		},
	},
	{
		Name: "Email",
		Samples: []string{
			"Write a professional email to a customer announcing a 10% discount on our Moroccan Amlou products for this weekend only.",
			"Compose a warm welcome email for new subscribers introducing them to Amlou MiZahra and our story.",
			"Draft an email to inform customers about our new Amlou flavors launching this month.",
		},
	},
	{
		Name: "Blog Article",
		Samples: []string{
			"Write a 300-word blog article about the history and health benefits of Moroccan Amlou.",
			"Generate a blog post explaining why Amlou is the perfect addition to breakfast or snacks.",
			"Write an informative blog post comparing traditional Moroccan Amlou recipes with modern variations.",
		},
	},
	{
		Name: "Ad Copy",
		Samples: []string{
			"Create a short, persuasive ad copy to promote our Moroccan Amlou on Instagram Ads.",
			"Write a catchy Google Ads description for a special Amlou weekend sale.",
			"Generate a promotional text for a flyer advertising our new Amlou flavors.",
		},
	},
	{
		Name: "Caption",
		Samples: []string{
			"Write a fun Instagram caption for a picture of our freshly made Amlou.",
			"Create a short, engaging Twitter caption to announce a discount on Amlou.",
			"Generate a Pinterest caption highlighting the natural ingredients in our Amlou.",
		},
	},
	{
		Name: "AnythingElse",
		Samples: []string{
			"Write an Instagram caption for a picture of our freshly made Amlou.",
			"Create a short, engaging Twitter caption to announce a discount on Amlou.",
			"Generate a Pinterest caption highlighting the natural ingredients in our Amlou.",
			"Freeform: type anything—AI can generate posts, ads, blog intros, emails, captions, or anything you need!",
		},
	},
}

// FindContentType looks up a catalog entry by name.
func FindContentType(name string) (ContentType, bool) {
	for _, ct := range ContentTypes {
		if ct.Name == name {
			return ct, true
		}
	}
	return ContentType{}, false
}
