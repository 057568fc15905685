package cache

// Read views held in the cache.
const (
	ViewCampaigns     = "campaigns"
	ViewAllCampaigns  = "all-campaigns"
	ViewCampaign      = "campaign"
	ViewDonations     = "donations"
	ViewCampaignStats = "campaign-stats"
)

// Mutation names a write that can make cached views stale.
type Mutation string

const (
	CreateCampaign Mutation = "create-campaign"
	UpdateCampaign Mutation = "update-campaign"
	DeleteCampaign Mutation = "delete-campaign"
	CreateDonation Mutation = "create-donation"
)

var Mutations = []Mutation{CreateCampaign, UpdateCampaign, DeleteCampaign, CreateDonation}

var Views = []string{ViewCampaigns, ViewAllCampaigns, ViewCampaign, ViewDonations, ViewCampaignStats}

// Invalidations declares, for every mutation, the views it affects. A donation
// moves a campaign's raised amount, so it touches the campaign views as well
// as the donor's history. Histories carry campaign titles, so editing or
// deleting a campaign drops them too.
var Invalidations = map[Mutation][]string{
	CreateCampaign: {ViewCampaigns, ViewAllCampaigns, ViewCampaign, ViewCampaignStats},
	UpdateCampaign: {ViewCampaigns, ViewAllCampaigns, ViewCampaign, ViewCampaignStats, ViewDonations},
	DeleteCampaign: {ViewCampaigns, ViewAllCampaigns, ViewCampaign, ViewCampaignStats, ViewDonations},
	CreateDonation: {ViewDonations, ViewCampaigns, ViewAllCampaigns, ViewCampaign, ViewCampaignStats},
}
