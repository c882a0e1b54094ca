package resources

// Resource type keys.
const (
	Solar      = "solar"
	Wind       = "wind"
	Hydro      = "hydro"
	Biomass    = "biomass"
	Geothermal = "geothermal"
)

var extendedFields = []Field{FieldNonRenewable, FieldPopulation, FieldGDP}

var defaultConfigs = []Config{
	{
		Key:         Solar,
		DisplayName: "Solar Energy",
		Endpoint:    "/api/solar",
		ThemeColor:  RGB{245, 166, 35},
		Scheme: Scheme{
			Header: RGB{230, 126, 34},
			AltRow: RGB{254, 245, 231},
			Accent: RGB{243, 156, 18},
		},
		Recommendations: [4]string{
			"Expand rooftop solar incentives for residential and commercial buildings.",
			"Pair new utility-scale arrays with battery storage to shift midday surplus.",
			"Modernize distribution grids to absorb high distributed-generation penetration.",
			"Streamline permitting and interconnection queues for community solar projects.",
		},
		Sources: [4]string{
			"International Renewable Energy Agency (IRENA)",
			"International Energy Agency (IEA) - Solar PV",
			"U.S. Energy Information Administration (EIA)",
			"Ember - Global Electricity Review",
		},
		Sample: SampleProfile{Base: 80, Multiplier: 12, Noise: 25},
	},
	{
		Key:         Wind,
		DisplayName: "Wind Energy",
		Endpoint:    "/api/wind",
		ThemeColor:  RGB{33, 150, 243},
		Scheme: Scheme{
			Header: RGB{21, 101, 192},
			AltRow: RGB{227, 242, 253},
			Accent: RGB{66, 165, 245},
		},
		Recommendations: [4]string{
			"Prioritize repowering of aging turbines at high-capacity-factor sites.",
			"Accelerate offshore wind leasing alongside port and transmission upgrades.",
			"Invest in forecasting to reduce curtailment during high-wind periods.",
			"Coordinate regional transmission planning to move wind power to demand centers.",
		},
		Sources: [4]string{
			"Global Wind Energy Council (GWEC)",
			"International Energy Agency (IEA) - Wind",
			"WindEurope Annual Statistics",
			"U.S. Department of Energy - Wind Market Reports",
		},
		Sample:      SampleProfile{Base: 120, Multiplier: 10, Noise: 30},
		ExtraFields: extendedFields,
	},
	{
		Key:         Hydro,
		DisplayName: "Hydro Energy",
		Endpoint:    "/api/hydro",
		ThemeColor:  RGB{0, 150, 136},
		Scheme: Scheme{
			Header: RGB{0, 121, 107},
			AltRow: RGB{224, 242, 241},
			Accent: RGB{38, 166, 154},
		},
		Recommendations: [4]string{
			"Upgrade turbines and generators at existing dams to raise efficiency.",
			"Develop pumped-storage capacity to balance variable renewables.",
			"Integrate drought-resilient reservoir management into dispatch planning.",
			"Assess environmental flows and fish passage when licensing new capacity.",
		},
		Sources: [4]string{
			"International Hydropower Association (IHA)",
			"International Energy Agency (IEA) - Hydropower",
			"World Bank - Hydropower Sector",
			"U.S. Energy Information Administration (EIA)",
		},
		Sample:      SampleProfile{Base: 300, Multiplier: 4, Noise: 40},
		ExtraFields: extendedFields,
	},
	{
		Key:         Biomass,
		DisplayName: "Biomass Energy",
		Endpoint:    "/api/biomass",
		ThemeColor:  RGB{76, 175, 80},
		Scheme: Scheme{
			Header: RGB{56, 142, 60},
			AltRow: RGB{232, 245, 233},
			Accent: RGB{102, 187, 106},
		},
		Recommendations: [4]string{
			"Source feedstock from certified sustainable forestry and agricultural residues.",
			"Promote combined heat and power to maximize biomass conversion efficiency.",
			"Support biogas capture from landfills and wastewater treatment plants.",
			"Track lifecycle emissions to verify net carbon benefits of new plants.",
		},
		Sources: [4]string{
			"International Renewable Energy Agency (IRENA) - Bioenergy",
			"IEA Bioenergy Technology Collaboration Programme",
			"World Bioenergy Association",
			"U.S. Energy Information Administration (EIA)",
		},
		Sample: SampleProfile{Base: 60, Multiplier: 3, Noise: 15},
	},
	{
		Key:         Geothermal,
		DisplayName: "Geothermal Energy",
		Endpoint:    "/api/geothermal",
		ThemeColor:  RGB{211, 84, 0},
		Scheme: Scheme{
			Header: RGB{186, 74, 0},
			AltRow: RGB{251, 233, 231},
			Accent: RGB{230, 126, 34},
		},
		Recommendations: [4]string{
			"De-risk exploration drilling through public cost-sharing programs.",
			"Pilot enhanced geothermal systems in regions without natural reservoirs.",
			"Use geothermal heat directly for district heating and industrial processes.",
			"Reinject produced fluids to sustain reservoir pressure and output.",
		},
		Sources: [4]string{
			"International Geothermal Association (IGA)",
			"International Renewable Energy Agency (IRENA) - Geothermal",
			"U.S. Department of Energy - Geothermal Technologies Office",
			"ThinkGeoEnergy Research",
		},
		Sample: SampleProfile{Base: 40, Multiplier: 2, Noise: 10},
	},
}

// Default returns the registry of the five renewable-energy types.
func Default() *Registry {
	return New(defaultConfigs...)
}
