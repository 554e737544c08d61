package phrases

var book = []Phrase{
	{
		ID: "pain-chest", Category: Pain, Severity: Critical, Order: 1,
		Text: map[string]string{
			"en": "I have chest pain",
			"fr": "J'ai une douleur thoracique",
			"de": "Ich habe Brustschmerzen",
			"it": "Ho dolore al petto",
			"es": "Tengo dolor en el pecho",
			"ru": "У меня боль в груди",
		},
	},
	{
		ID: "pain-head-severe", Category: Pain, Severity: Critical, Order: 2,
		Text: map[string]string{
			"en": "I have a severe headache",
			"fr": "J'ai un mal de tête sévère",
			"de": "Ich habe starke Kopfschmerzen",
			"it": "Ho un forte mal di testa",
			"es": "Tengo un dolor de cabeza severo",
			"ru": "У меня сильная головная боль",
		},
	},
	{
		ID: "pain-abdomen", Category: Pain, Severity: High, Order: 3,
		Text: map[string]string{
			"en": "I have abdominal pain",
			"fr": "J'ai des douleurs abdominales",
			"de": "Ich habe Bauchschmerzen",
			"it": "Ho dolore addominale",
			"es": "Tengo dolor abdominal",
			"ru": "У меня боль в животе",
		},
	},
	{
		ID: "pain-dizzy", Category: Pain, Severity: High, Order: 4,
		Text: map[string]string{
			"en": "I feel dizzy",
			"fr": "J'ai des vertiges",
			"de": "Mir ist schwindelig",
			"it": "Ho le vertigini",
			"es": "Me siento mareado",
			"ru": "У меня кружится голова",
		},
	},
	{
		ID: "breathing-cant", Category: Breathing, Severity: Critical, Order: 1,
		Text: map[string]string{
			"en": "I can't breathe",
			"fr": "Je ne peux pas respirer",
			"de": "Ich kann nicht atmen",
			"it": "Non riesco a respirare",
			"es": "No puedo respirar",
			"ru": "Я не могу дышать",
		},
	},
	{
		ID: "breathing-difficult", Category: Breathing, Severity: Critical, Order: 2,
		Text: map[string]string{
			"en": "I have difficulty breathing",
			"fr": "J'ai des difficultés à respirer",
			"de": "Ich habe Schwierigkeiten beim Atmen",
			"it": "Ho difficoltà a respirare",
			"es": "Tengo dificultad para respirar",
			"ru": "Мне трудно дышать",
		},
	},
	{
		ID: "breathing-asthma", Category: Breathing, Severity: High, Order: 3,
		Text: map[string]string{
			"en": "I have asthma",
			"fr": "J'ai de l'asthme",
			"de": "Ich habe Asthma",
			"it": "Ho l'asma",
			"es": "Tengo asma",
			"ru": "У меня астма",
		},
	},
	{
		ID: "allergy-severe", Category: Allergies, Severity: Critical, Order: 1,
		Text: map[string]string{
			"en": "I am having an allergic reaction",
			"fr": "Je fais une réaction allergique",
			"de": "Ich habe eine allergische Reaktion",
			"it": "Sto avendo una reazione allergica",
			"es": "Estoy teniendo una reacción alérgica",
			"ru": "У меня аллергическая реакция",
		},
	},
	{
		ID: "allergy-food", Category: Allergies, Severity: High, Order: 2,
		Text: map[string]string{
			"en": "I am allergic to",
			"fr": "Je suis allergique à",
			"de": "Ich bin allergisch gegen",
			"it": "Sono allergico a",
			"es": "Soy alérgico a",
			"ru": "У меня аллергия на",
		},
	},
	{
		ID: "allergy-medication", Category: Allergies, Severity: High, Order: 3,
		Text: map[string]string{
			"en": "I am allergic to this medication",
			"fr": "Je suis allergique à ce médicament",
			"de": "Ich bin allergisch gegen dieses Medikament",
			"it": "Sono allergico a questo farmaco",
			"es": "Soy alérgico a este medicamento",
			"ru": "У меня аллергия на это лекарство",
		},
	},
	{
		ID: "medication-need", Category: Medication, Severity: High, Order: 1,
		Text: map[string]string{
			"en": "I need my medication",
			"fr": "J'ai besoin de mes médicaments",
			"de": "Ich brauche meine Medikamente",
			"it": "Ho bisogno dei miei farmaci",
			"es": "Necesito mi medicación",
			"ru": "Мне нужны мои лекарства",
		},
	},
	{
		ID: "medication-diabetes", Category: Medication, Severity: High, Order: 2,
		Text: map[string]string{
			"en": "I am diabetic",
			"fr": "Je suis diabétique",
			"de": "Ich bin Diabetiker",
			"it": "Sono diabetico",
			"es": "Soy diabético",
			"ru": "У меня диабет",
		},
	},
	{
		ID: "medication-insulin", Category: Medication, Severity: Critical, Order: 3,
		Text: map[string]string{
			"en": "I need insulin",
			"fr": "J'ai besoin d'insuline",
			"de": "Ich brauche Insulin",
			"it": "Ho bisogno di insulina",
			"es": "Necesito insulina",
			"ru": "Мне нужен инсулин",
		},
	},
	{
		ID: "general-help", Category: General, Severity: High, Order: 1,
		Text: map[string]string{
			"en": "I need help",
			"fr": "J'ai besoin d'aide",
			"de": "Ich brauche Hilfe",
			"it": "Ho bisogno di aiuto",
			"es": "Necesito ayuda",
			"ru": "Мне нужна помощь",
		},
	},
	{
		ID: "general-doctor", Category: General, Severity: Medium, Order: 2,
		Text: map[string]string{
			"en": "I need to see a doctor",
			"fr": "J'ai besoin de voir un médecin",
			"de": "Ich muss einen Arzt sehen",
			"it": "Ho bisogno di vedere un medico",
			"es": "Necesito ver a un médico",
			"ru": "Мне нужно к врачу",
		},
	},
	{
		ID: "general-hospital", Category: General, Severity: High, Order: 3,
		Text: map[string]string{
			"en": "Take me to the hospital",
			"fr": "Emmenez-moi à l'hôpital",
			"de": "Bringen Sie mich ins Krankenhaus",
			"it": "Portatemi in ospedale",
			"es": "Lléveme al hospital",
			"ru": "Отвезите меня в больницу",
		},
	},
	{
		ID: "general-ambulance", Category: General, Severity: Critical, Order: 4,
		Text: map[string]string{
			"en": "Call an ambulance",
			"fr": "Appelez une ambulance",
			"de": "Rufen Sie einen Krankenwagen",
			"it": "Chiamate un'ambulanza",
			"es": "Llamen a una ambulancia",
			"ru": "Вызовите скорую",
		},
	},
}
