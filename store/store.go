// Package store 实现车型目录与用户评分的存储。
//
// 接口定义在 core 包（core.CatalogStore、core.RatingStore），此包只包含实现：
//
//	MemoryCatalog / MemoryRatings  内存实现，测试与小数据集使用
//	SQLStore                       sqlite3 或 postgres，目录与评分共用一个库
//	RedisRatingStore               评分存 Redis，目录仍在 SQL 或内存
//
// 一般通过 Open 按配置组合：
//
//	stores, err := store.Open(ctx, store.Options{Driver: "sqlite3", DSN: "carkit.db", Migrate: true})
//	defer stores.Close()
//
// 原始数据集由 ImportCSV 清洗后写入目录。
package store
