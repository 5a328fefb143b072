package detectors

// Built-in word lists. Every list can be replaced through config.Lexicons.

var defaultWeakVerbs = []string{
	"helped", "helped with", "assisted", "worked on", "did work on", "participated in",
	"was involved in", "involved in", "contributed to", "supported", "was part of",
	"took part in", "was responsible for", "did", "made", "got", "had", "used",
	"handled", "was working on", "was helping with", "was supporting", "was contributing to",
	"dealt with", "tried", "attempted",
}

var defaultStrongVerbs = []string{
	"accelerated", "accomplished", "achieved", "analysed", "analyzed", "architected",
	"assessed", "automated", "boosted", "built", "coached", "collaborated", "converted",
	"coordinated", "created", "cut", "delivered", "deployed", "designed", "developed",
	"directed", "drove", "educated", "engineered", "enhanced", "established", "evaluated",
	"exceeded", "facilitated", "founded", "generated", "grew", "implemented", "improved",
	"increased", "initiated", "integrated", "launched", "led", "maintained", "managed",
	"mentored", "migrated", "modernised", "modernized", "negotiated", "optimised", "optimized",
	"orchestrated", "owned", "pioneered", "reduced", "redesigned", "researched", "resolved",
	"reviewed", "saved", "scaled", "shipped", "spearheaded", "streamlined", "surpassed",
	"trained", "transformed", "upgraded",
}

var defaultBuzzwords = []string{
	"synergy", "synergies", "leverage", "leveraged", "paradigm", "disruptive", "cutting-edge",
	"best-in-class", "world-class", "game-changer", "thought leader", "guru", "ninja",
	"rockstar", "rock star", "wizard", "passionate", "dynamic", "proactive", "results-driven",
	"results-oriented", "detail-oriented", "team player", "self-starter", "self-motivated",
	"go-getter", "hard-working", "hardworking", "motivated", "problem solver", "quick learner",
	"fast-paced", "high-energy", "out-of-the-box", "outside the box", "think outside the box",
	"value-added", "value proposition", "core competency", "mission-critical", "holistic",
	"go-to person", "track record", "strategic thinker",
}

var defaultTeamworkIndicators = []string{
	"team", "teams", "collaborated", "collaborate", "collaborating", "collaboration",
	"coordinated", "coordinate", "coordinating", "cross-functional", "multi-disciplinary",
	"mentored", "mentoring", "mentor", "coached", "partnered", "partnering", "stakeholder",
	"stakeholders", "worked with", "working with", "supervised", "trained", "facilitated",
	"led", "joint", "pair programming", "peer review", "peer reviews", "liaised",
}

var defaultAchievementIndicators = []string{
	"achieved", "increased", "improved", "reduced", "saved", "generated", "led to",
	"grew", "boosted", "cut", "exceeded", "surpassed", "won", "awarded", "doubled",
	"tripled", "accelerated", "decreased", "eliminated", "resulting in", "resulted in",
	"delivered", "recognised", "recognized", "promoted",
}

var defaultDutyIndicators = []string{
	"responsible for", "was responsible for", "duties included", "duties include",
	"tasked with", "in charge of", "accountable for", "role involved", "job involved",
	"my role was", "responsibilities included", "responsibilities include",
}

var defaultTechnicalSkills = []string{
	"python", "java", "javascript", "typescript", "go", "golang", "c", "c++", "c#", "ruby",
	"php", "rust", "scala", "kotlin", "swift", "r", "matlab", "sql", "nosql", "postgresql",
	"mysql", "mongodb", "redis", "elasticsearch", "react", "angular", "vue", "node.js",
	"django", "flask", "spring", "html", "css", "docker", "kubernetes", "aws", "azure",
	"gcp", "terraform", "ansible", "jenkins", "git", "linux", "ci/cd", "rest", "graphql",
	"grpc", "microservices", "kafka", "rabbitmq", "spark", "hadoop", "pandas", "numpy",
	"tensorflow", "pytorch", "scikit-learn", "tableau", "power bi", "excel", "jira",
	"machine learning", "deep learning", "data analysis", "devops", "agile", "scrum",
	"api", "apis", "cloud", "database", "databases", "sap", "salesforce", "figma",
}

var defaultSoftSkills = []string{
	"communication", "leadership", "teamwork", "problem solving", "problem-solving",
	"collaboration", "time management", "adaptability", "critical thinking", "creativity",
	"negotiation", "presentation", "mentoring", "stakeholder management",
	"attention to detail", "organisation", "organization", "public speaking",
	"conflict resolution", "decision making", "decision-making", "empathy",
}

// defaultTypos maps common misspellings to their correction ("wrong=right").
var defaultTypos = []string{
	"teh=the", "recieve=receive", "recieved=received", "seperate=separate",
	"seperately=separately", "acheive=achieve", "acheived=achieved", "managment=management",
	"responsable=responsible", "reponsible=responsible", "enviroment=environment",
	"developement=development", "sucessful=successful", "succesful=successful",
	"sucessfully=successfully", "occured=occurred", "definately=definitely",
	"begining=beginning", "calender=calendar", "adress=address", "wich=which",
	"buisness=business", "comunication=communication", "commited=committed",
	"experiance=experience", "knowlege=knowledge", "langauge=language",
	"maintainance=maintenance", "neccessary=necessary", "oppurtunity=opportunity",
	"proffesional=professional", "sofware=software", "techincal=technical",
	"accomodate=accommodate", "untill=until", "thier=their", "alot=a lot",
	"independant=independent", "liase=liaise", "guage=gauge", "performace=performance",
	"implimented=implemented", "requirments=requirements", "strenght=strength",
	"succesfully=successfully", "collegue=colleague", "collegues=colleagues",
}

// missingApostrophes maps contractions written without an apostrophe.
var missingApostrophes = map[string]string{
	"dont": "don't", "doesnt": "doesn't", "didnt": "didn't", "cant": "can't",
	"wont": "won't", "isnt": "isn't", "wasnt": "wasn't", "arent": "aren't",
	"youre": "you're", "theyre": "they're", "weve": "we've", "ive": "I've",
	"im": "I'm", "couldnt": "couldn't", "shouldnt": "shouldn't", "wouldnt": "wouldn't",
}

// nonStandardPhrases are wordings flagged in formal resumes in every dialect.
var nonStandardPhrases = map[string]string{
	"revert back":    "reply",
	"discuss about":  "discuss",
	"cope up with":   "cope with",
	"do the needful": "complete the required work",
	"i am having":    "I have",
	"return back":    "return",
	"repeat again":   "repeat",
	"could of":       "could have",
	"should of":      "should have",
	"would of":       "would have",
	"irregardless":   "regardless",
}

// americanToBritishIze covers -ize/-yze spellings. Indian English accepts them.
var americanToBritishIze = map[string]string{
	"organize": "organise", "organized": "organised", "organizing": "organising",
	"organization": "organisation", "organizations": "organisations",
	"optimize": "optimise", "optimized": "optimised", "optimizing": "optimising",
	"optimization": "optimisation", "analyze": "analyse", "analyzed": "analysed",
	"analyzing": "analysing", "utilize": "utilise", "utilized": "utilised",
	"prioritize": "prioritise", "prioritized": "prioritised", "recognize": "recognise",
	"recognized": "recognised", "standardize": "standardise", "standardized": "standardised",
	"customize": "customise", "customized": "customised", "modernize": "modernise",
	"modernized": "modernised", "specialize": "specialise", "specialized": "specialised",
	"summarize": "summarise", "summarized": "summarised", "minimize": "minimise",
	"minimized": "minimised", "maximize": "maximise", "maximized": "maximised",
}

// americanToBritish covers -or, -er and single-l spellings flagged in both dialects.
var americanToBritish = map[string]string{
	"color": "colour", "colors": "colours", "behavior": "behaviour", "behaviors": "behaviours",
	"favorite": "favourite", "honor": "honour", "honors": "honours", "labor": "labour",
	"center": "centre", "centers": "centres", "catalog": "catalogue", "traveled": "travelled",
	"traveling": "travelling", "modeled": "modelled", "modeling": "modelling",
	"labeled": "labelled", "labeling": "labelling", "canceled": "cancelled",
	"enrollment": "enrolment", "fulfill": "fulfil", "defense": "defence",
	"offense": "offence", "neighbor": "neighbour", "endeavor": "endeavour",
	"endeavors": "endeavours", "counselor": "counsellor", "jewelry": "jewellery",
}

// indianAccepted is extra vocabulary accepted by the Indian English dialect.
var indianAccepted = []string{
	"lakh", "lakhs", "crore", "crores", "fresher", "freshers", "prepone", "preponed",
	"b.tech", "m.tech", "b.e", "b.sc", "m.sc", "cgpa", "sgpa", "upskilling", "upskill",
}

// roleKeywords are the preset keyword lists used for the keyword report when
// no job keywords are supplied.
var roleKeywords = map[string][]string{
	"general": {
		"python", "javascript", "java", "sql", "react", "node.js", "aws", "docker",
		"git", "agile", "api", "database",
	},
	"software_developer": {
		"python", "javascript", "java", "react", "node.js", "sql", "aws", "docker",
		"kubernetes", "git", "agile", "scrum", "api", "rest", "graphql", "microservices",
		"ci/cd", "machine learning", "full stack", "frontend", "backend", "devops",
		"cloud", "database",
	},
	"data_scientist": {
		"python", "r", "sql", "pandas", "numpy", "scikit-learn", "tensorflow", "pytorch",
		"machine learning", "deep learning", "statistics", "data analysis",
		"data visualization", "tableau", "power bi", "jupyter", "spark", "hadoop", "nlp",
		"computer vision", "predictive modeling",
	},
	"project_manager": {
		"agile", "scrum", "kanban", "waterfall", "project management",
		"stakeholder management", "risk management", "budget management", "timeline",
		"milestone", "deliverable", "scope", "requirements", "jira", "asana", "trello",
		"ms project", "prince2", "pmp", "team leadership", "communication", "presentation",
	},
}

// RoleKeywords returns the preset keyword list for role.
func RoleKeywords(role string) ([]string, bool) {
	kws, ok := roleKeywords[role]
	if !ok {
		return nil, false
	}
	out := make([]string, len(kws))
	copy(out, kws)
	return out, true
}

// Roles lists the available keyword presets.
func Roles() []string {
	return []string{"general", "software_developer", "data_scientist", "project_manager"}
}

// headingAliases maps canonical section headings to the titles recognized for them.
var headingAliases = map[string][]string{
	"summary": {
		"summary", "professional summary", "profile", "professional profile", "objective",
		"career objective", "about me", "career summary", "executive summary",
		"personal statement", "overview",
	},
	"experience": {
		"experience", "work experience", "professional experience", "employment history",
		"work history", "employment", "career history", "relevant experience",
		"internships", "internship",
	},
	"education": {
		"education", "academic background", "qualifications", "academic qualifications",
		"education and training", "educational qualifications", "academics",
	},
	"skills": {
		"skills", "technical skills", "core skills", "key skills", "core competencies",
		"competencies", "technologies", "tools and technologies", "skills summary",
		"technical expertise", "skill set", "skillset",
	},
	"projects":       {"projects", "key projects", "personal projects", "academic projects"},
	"certifications": {"certifications", "certificates", "licenses and certifications", "courses", "training"},
	"achievements":   {"achievements", "awards", "honours", "honors", "accomplishments", "awards and achievements"},
	"contact":        {"contact", "contact information", "contact details"},
	"hobbies":        {"hobbies", "hobbies and interests", "extracurricular activities"},
	"interests":      {"interests", "personal interests"},
	"references":     {"references", "referees"},
	"personal":       {"personal details", "personal information", "personal data", "personal"},
	"languages":      {"languages"},
	"volunteering":   {"volunteering", "volunteer experience", "volunteer work"},
	"publications":   {"publications"},
}

// personalDataMarkers flag details that do not belong on a modern resume.
var personalDataMarkers = []string{
	"date of birth", "dob", "marital status", "nationality", "religion", "father's name",
	"fathers name", "mother's name", "passport number", "passport no", "gender", "caste",
	"references available upon request", "references available on request",
}
